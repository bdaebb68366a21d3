package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
)

// OrthogonalityLoss is the batch mean of ||T·Tᵀ - I||_F for transforms [batch, k, k].
// It is 0 exactly when every transform is orthogonal.
func OrthogonalityLoss(transforms *Node) *Node {
	mustRank("orthogonality", transforms, 3)
	k := transforms.Shape().Dim(1)
	if transforms.Shape().Dim(2) != k {
		panic(&ShapeMismatchError{Stage: "orthogonality", Axis: "columns", Expected: k, Actual: transforms.Shape().Dim(2)})
	}
	g := transforms.Graph()
	gram := Einsum("bij,bkj->bik", transforms, transforms)
	identity := Reshape(identityConst(g, transforms.DType(), k, identityFull), 1, k, k)
	diff := Sub(gram, identity)
	return ReduceAllMean(safeSqrt(ReduceSum(Square(diff), 1, 2)))
}

// NormalizationLoss is the batch mean of ||y - 1|| for the AlignmentAlpha scalars y [batch, 1].
func NormalizationLoss(y *Node) *Node {
	mustRank("normalization", y, 2)
	diff := AddScalar(y, -1)
	return ReduceAllMean(safeSqrt(ReduceSum(Square(diff), 1)))
}

// safeSqrt is Sqrt with a zero gradient at 0, where Sqrt's derivative is infinite.
// The penalties sit exactly at 0 for freshly initialized alignments.
func safeSqrt(x *Node) *Node {
	positive := GreaterThan(x, ZerosLike(x))
	return Where(positive, Sqrt(Where(positive, x, OnesLike(x))), ZerosLike(x))
}

// Orthogonality is OrthogonalityLoss as a Module: inputs {transforms}, outputs {loss}.
type Orthogonality struct{}

func (Orthogonality) Forward(_ *context.Context, inputs []*Node) []*Node {
	return []*Node{OrthogonalityLoss(inputs[0])}
}

// Normalization is NormalizationLoss as a Module: inputs {y}, outputs {loss}.
type Normalization struct{}

func (Normalization) Forward(_ *context.Context, inputs []*Node) []*Node {
	return []*Node{NormalizationLoss(inputs[0])}
}
