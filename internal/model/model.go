package model

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"

	"gpnet/internal/backend"
)

// Batch represents a minibatch of samples and their labels. Each row of Inputs is
// one sample; its layout depends on the model (expression values per gene, or a
// flattened image).
type Batch struct {
	Inputs [][]float32
	Labels []int
}

// Size is the number of samples in the batch.
func (b Batch) Size() int { return len(b.Inputs) }

// Penalties are the alignment regularizers of one forward pass. Disabled stages
// contribute 0.
type Penalties struct {
	InputOrthogonality   float64
	FeatureOrthogonality float64
	Normalization        float64
}

// Sum adds all penalties.
func (p Penalties) Sum() float64 {
	return p.InputOrthogonality + p.FeatureOrthogonality + p.Normalization
}

// Output is the result of one forward pass. Fields a model does not produce are nil.
type Output struct {
	// Logits is [batch][classes], for sample-level classifiers.
	Logits [][]float32
	// LogProbs is [batch][points][classes], for per-point classifiers.
	LogProbs [][][]float32

	InputTransform   [][][]float32
	FeatureTransform [][][]float32
	Aux              [][]float32
	Penalties        Penalties
}

// Model runs inference over batches.
type Model interface {
	Forward(batch Batch) (*Output, error)
	NumClasses() int
}

var (
	// ErrEmptyBatch is returned for a batch without samples.
	ErrEmptyBatch = errors.New("model: empty batch")
	// ErrUnsupportedBackend is returned when the backend lacks an op a model needs.
	ErrUnsupportedBackend = errors.New("model: backend does not support the model")
)

func newContext() *context.Context {
	// Graphs are rebuilt for every new batch size and must find the variables of
	// the first build.
	return context.New().Checked(false)
}

func defaultBackend(b backends.Backend) (backends.Backend, error) {
	if b != nil {
		return b, nil
	}
	return backend.New()
}

// checkBatch verifies every row has width values and every label is in range.
func checkBatch(batch Batch, width, numClasses int) error {
	if batch.Size() == 0 {
		return ErrEmptyBatch
	}
	for i, row := range batch.Inputs {
		if len(row) != width {
			return errors.Errorf("model: sample %d has %d values, want %d", i, len(row), width)
		}
	}
	if batch.Labels != nil {
		if len(batch.Labels) != batch.Size() {
			return errors.Errorf("model: %d labels for %d samples", len(batch.Labels), batch.Size())
		}
		for i, l := range batch.Labels {
			if l < 0 || l >= numClasses {
				return errors.Errorf("model: label %d of sample %d outside [0, %d)", l, i, numClasses)
			}
		}
	}
	return nil
}

// call runs exec, turning graph-building panics into errors.
func call(exec *context.Exec, args ...any) (outputs []*tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() { outputs = exec.Call(args...) })
	if err != nil {
		return nil, errors.WithMessage(err, "model: forward")
	}
	return outputs, nil
}

// transposeCoords turns [gene][dim] coordinates into [dim][gene].
func transposeCoords(coords [][]float64) [][]float32 {
	if len(coords) == 0 {
		return nil
	}
	out := make([][]float32, len(coords[0]))
	for d := range out {
		out[d] = make([]float32, len(coords))
		for n, c := range coords {
			out[d][n] = float32(c[d])
		}
	}
	return out
}
