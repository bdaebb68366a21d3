package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/types/shapes"
)

// AlignmentAlpha learns a k×k transform for the raw per-gene input, with a single
// learned degree of freedom: the [0,0] entry is a scalar y predicted from the
// points, all other entries are those of the identity. y is also returned, to be
// pushed towards 1 by NormalizationLoss.
//
// K=1 is a degenerate but valid case: the transform is the 1×1 matrix [y].
type AlignmentAlpha struct {
	K int
}

// Transform returns the [batch, k, k] transform and y [batch, 1] for x [batch, k, points].
func (a AlignmentAlpha) Transform(ctx *context.Context, x *Node) (transform, y *Node) {
	k := a.K
	mustChannels("alignment_alpha", x, k)
	g := x.Graph()
	batchSize := x.Shape().Dim(0)

	h := pointwiseBlock(ctx.In("conv1"), x, alignHidden)
	h = ReduceMax(h, 2)
	h = layers.Dense(ctx.In("fc3"), h, true, k*k)
	h = batchNorm(ctx.In("bn6"), h, -1)
	h = activations.Relu(h)
	y = layers.Dense(ctx.In("fc4").WithInitializer(initializers.Zero), h, true, 1)

	flat := y
	if k > 1 {
		flat = Concatenate([]*Node{y, Zeros(g, shapes.Make(y.DType(), batchSize, k*k-1))}, -1)
	}
	flat = Add(flat, identityConst(g, flat.DType(), k, identityZeroFirst))
	return Reshape(flat, batchSize, k, k), y
}

// Forward implements Module: inputs are {x}, outputs {transform, y}.
func (a AlignmentAlpha) Forward(ctx *context.Context, inputs []*Node) []*Node {
	t, y := a.Transform(ctx, inputs[0])
	return []*Node{t, y}
}

// AlignmentBeta learns a full k×k transform from a feature map, starting at the
// identity. It is meant to stay close to orthogonal; see OrthogonalityLoss.
type AlignmentBeta struct {
	K int
}

// Transform returns the [batch, k, k] transform for x [batch, k, points].
func (b AlignmentBeta) Transform(ctx *context.Context, x *Node) *Node {
	k := b.K
	mustChannels("alignment_beta", x, k)
	g := x.Graph()
	batchSize := x.Shape().Dim(0)

	h := pointwiseBlock(ctx.In("conv1"), x, alignHidden)
	h = ReduceMax(h, 2)
	h = layers.Dense(ctx.In("fc3").WithInitializer(initializers.Zero), h, true, k*k)
	h = Add(h, identityConst(g, h.DType(), k, identityFull))
	return Reshape(h, batchSize, k, k)
}

// Forward implements Module: inputs are {x}, outputs {transform}.
func (b AlignmentBeta) Forward(ctx *context.Context, inputs []*Node) []*Node {
	return []*Node{b.Transform(ctx, inputs[0])}
}
