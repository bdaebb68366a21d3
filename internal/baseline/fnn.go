package baseline

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
)

// FNN is a stack of dense ReLU layers, each followed by dropout, and a linear readout.
type FNN struct {
	NumClasses int
	Hidden     []int
	Dropout    float64
}

// NewFNN returns the six-layer network used as the expression-vector baseline.
func NewFNN(numClasses int) *FNN {
	return &FNN{NumClasses: numClasses, Hidden: []int{500, 500, 200, 300, 200, 100}, Dropout: 0.5}
}

// Logits maps expression [batch, genes] to [batch, NumClasses].
func (m *FNN) Logits(ctx *context.Context, x *Node) *Node {
	if x.Rank() != 2 {
		exceptions.Panicf("baseline fnn: input must be [batch, genes], got %s", x.Shape())
	}
	for i, width := range m.Hidden {
		ctx := ctx.Inf("fc%d", i+1)
		x = activations.Relu(layers.Dense(ctx, x, true, width))
		if m.Dropout > 0 {
			x = layers.DropoutStatic(ctx, x, m.Dropout)
		}
	}
	return layers.Dense(ctx.Inf("fc%d", len(m.Hidden)+1), x, true, m.NumClasses)
}
