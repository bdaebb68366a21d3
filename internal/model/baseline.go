package model

import (
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/pkg/errors"

	"gpnet/internal/backend"
	"gpnet/internal/baseline"
	"gpnet/internal/heatmap"
)

// Baseline wraps one of the reference classifiers. Input rows are flat: a rendered
// heatmap for the CNN, an expression vector for the FNN.
type Baseline struct {
	name       string
	width      int
	numClasses int
	exec       *context.Exec
}

// NewHeatmapCNN classifies heatmaps rendered by heatmap.Render. The backend must
// implement convolutions.
func NewHeatmapCNN(b backends.Backend, numClasses int) (*Baseline, error) {
	if numClasses <= 0 {
		return nil, errors.Errorf("model: heatmap cnn needs classes, got %d", numClasses)
	}
	b, err := defaultBackend(b)
	if err != nil {
		return nil, err
	}
	if !backend.Supports(b, backends.OpTypeConvGeneralDilated, backends.OpTypeReduceWindow) {
		return nil, errors.Wrapf(ErrUnsupportedBackend, "heatmap cnn needs convolutions, %s has none (set %s=xla)",
			b.Name(), backends.ConfigEnvVar)
	}
	cnn := baseline.NewCNN(numClasses)
	m := &Baseline{name: "heatmap-cnn", width: heatmap.Channels * heatmap.Height * heatmap.Width, numClasses: numClasses}
	m.exec = context.NewExec(b, newContext(), func(ctx *context.Context, pixels *Node) *Node {
		images := Reshape(pixels, pixels.Shape().Dim(0), heatmap.Channels, heatmap.Height, heatmap.Width)
		return cnn.Logits(ctx, images)
	})
	return m, nil
}

// NewFNN classifies expression vectors of numGenes values.
func NewFNN(b backends.Backend, numGenes, numClasses int) (*Baseline, error) {
	if numClasses <= 0 || numGenes <= 0 {
		return nil, errors.Errorf("model: fnn needs genes and classes, got %d and %d", numGenes, numClasses)
	}
	b, err := defaultBackend(b)
	if err != nil {
		return nil, err
	}
	fnn := baseline.NewFNN(numClasses)
	m := &Baseline{name: "fnn", width: numGenes, numClasses: numClasses}
	m.exec = context.NewExec(b, newContext(), func(ctx *context.Context, x *Node) *Node {
		return fnn.Logits(ctx, x)
	})
	return m, nil
}

// NumClasses implements Model.
func (m *Baseline) NumClasses() int { return m.numClasses }

// Forward implements Model.
func (m *Baseline) Forward(batch Batch) (*Output, error) {
	if err := checkBatch(batch, m.width, m.numClasses); err != nil {
		return nil, errors.WithMessage(err, m.name)
	}
	outputs, err := call(m.exec, batch.Inputs)
	if err != nil {
		return nil, err
	}
	return &Output{Logits: outputs[0].Value().([][]float32)}, nil
}
