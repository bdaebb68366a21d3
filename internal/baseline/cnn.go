// Package baseline holds the reference classifiers the point-set model is compared
// against: a small CNN over rendered expression heatmaps and a plain feed-forward
// network over the raw expression vector.
package baseline

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/batchnorm"
)

// CNN classifies channels-first images [batch, channels, height, width].
type CNN struct {
	NumClasses int
	// Filters per convolution block; each block halves height and width.
	Filters []int
	Hidden  int
	Dropout float64
}

// NewCNN returns a two-block CNN.
func NewCNN(numClasses int) *CNN {
	return &CNN{NumClasses: numClasses, Filters: []int{16, 32}, Hidden: 64, Dropout: 0.3}
}

// Logits returns [batch, NumClasses].
func (m *CNN) Logits(ctx *context.Context, images *Node) *Node {
	if images.Rank() != 4 {
		exceptions.Panicf("baseline cnn: images must be [batch, channels, height, width], got %s", images.Shape())
	}
	batchSize := images.Shape().Dim(0)

	layerIdx := 0
	nextCtx := func(name string) *context.Context {
		newCtx := ctx.Inf("%03d_%s", layerIdx, name)
		layerIdx++
		return newCtx
	}

	x := TransposeAllDims(images, 0, 2, 3, 1)
	for _, filters := range m.Filters {
		x = layers.Convolution(nextCtx("conv"), x).Filters(filters).KernelSize(3).PadSame().Done()
		x = activations.Relu(x)
		x = batchnorm.New(nextCtx("bn"), x, -1).UseBackendInference(false).Done()
		x = MaxPool(x).Window(2).Done()
	}

	x = Reshape(x, batchSize, -1)
	x = layers.Dense(nextCtx("dense"), x, true, m.Hidden)
	x = activations.Relu(x)
	if m.Dropout > 0 {
		x = layers.DropoutStatic(nextCtx("dropout"), x, m.Dropout)
	}
	return layers.Dense(nextCtx("readout"), x, true, m.NumClasses)
}
