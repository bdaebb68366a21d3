package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/batchnorm"
	"github.com/gomlx/gomlx/types/shapes"
)

// Module is the capability shared by every component of the network: it adds its
// computation to the graph of inputs, using parameters stored in ctx.
// Optional outputs that were not computed are returned as nil.
type Module interface {
	Forward(ctx *context.Context, inputs []*Node) []*Node
}

var (
	_ Module = AlignmentAlpha{}
	_ Module = AlignmentBeta{}
	_ Module = GeneSpace{}
	_ Module = AttentionPooling{}
	_ Module = (*FeatureExtractor)(nil)
	_ Module = (*Classifier)(nil)
	_ Module = (*DenseClassifier)(nil)
	_ Module = Orthogonality{}
	_ Module = Normalization{}
)

// pointwise is a 1x1 convolution: the same linear projection applied to every
// point of x [batch, channels, points]. It returns [batch, outChannels, points].
func pointwise(ctx *context.Context, x *Node, outChannels int) *Node {
	g := x.Graph()
	dtype := x.DType()
	inChannels := x.Shape().Dim(1)
	weights := ctx.VariableWithShape("weights", shapes.Make(dtype, inChannels, outChannels)).ValueGraph(g)
	biases := ctx.WithInitializer(initializers.Zero).
		VariableWithShape("biases", shapes.Make(dtype, outChannels)).ValueGraph(g)
	out := Einsum("bcn,co->bon", x, weights)
	return Add(out, Reshape(biases, 1, outChannels, 1))
}

// pointwiseBlock is pointwise followed by batch normalization over the channel axis and a ReLU.
func pointwiseBlock(ctx *context.Context, x *Node, outChannels int) *Node {
	x = pointwise(ctx.In("conv"), x, outChannels)
	x = batchNorm(ctx.In("bn"), x, 1)
	return activations.Relu(x)
}

// applyTransform right-multiplies the points of x [batch, k, points] by the per-sample
// transform [batch, k, k], returning [batch, k, points].
func applyTransform(x, transform *Node) *Node {
	return Einsum("bkn,bkj->bjn", x, transform)
}

// blendTransform adds weight * (x · transform) to x.
func blendTransform(x, transform *Node, weight float64) *Node {
	return Add(MulScalar(applyTransform(x, transform), weight), x)
}

// batchNorm normalizes featureAxis of x using plain ops, which every backend implements.
func batchNorm(ctx *context.Context, x *Node, featureAxis int) *Node {
	return batchnorm.New(ctx, x, featureAxis).UseBackendInference(false).Done()
}
