package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/activations"
)

// AttentionPooling computes gated attention weights over the points of a feature
// map. It only produces the weights; Pool applies them.
type AttentionPooling struct {
	InputDim int
	Hidden1  int
	Hidden2  int
}

// Weights returns [batch, points, 1] weights for x [batch, InputDim, points],
// softmax-normalized over the points.
func (a AttentionPooling) Weights(ctx *context.Context, x *Node) *Node {
	mustChannels("attention_pooling", x, a.InputDim)
	h := activations.Relu(pointwise(ctx.In("extractor"), x, a.Hidden1))
	v := Tanh(pointwise(ctx.In("attention_v"), h, a.Hidden2))
	u := Logistic(pointwise(ctx.In("attention_u"), h, a.Hidden2))
	scores := pointwise(ctx.In("attention_weights"), Mul(v, u), 1) // [batch, 1, points]
	scores = Transpose(scores, 1, 2)
	return Softmax(scores, 1)
}

// Pool is the weighted sum of the points of x [batch, channels, points] with
// weights [batch, points, 1], returning [batch, channels].
func (a AttentionPooling) Pool(x, weights *Node) *Node {
	pooled := Einsum("bcn,bno->bco", x, weights)
	return Reshape(pooled, x.Shape().Dim(0), x.Shape().Dim(1))
}

// Forward implements Module: inputs are {x}, outputs {weights}.
func (a AttentionPooling) Forward(ctx *context.Context, inputs []*Node) []*Node {
	return []*Node{a.Weights(ctx, inputs[0])}
}
