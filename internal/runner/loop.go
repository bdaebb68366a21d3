package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"gpnet/internal/dataset"
	"gpnet/internal/metrics"
	"gpnet/internal/model"
)

// RunConfig captures the knobs required by the inference loop.
type RunConfig struct {
	Model model.Model
	// Inputs holds one row per sample, in the layout Model expects.
	Inputs     [][]float64
	Labels     []int
	Steps      int
	BatchSize  int
	NumWorkers int
	LogEvery   int
	Seed       int64
}

// Result summarizes a finished run.
type Result struct {
	Steps       int
	Samples     int
	LastPenalty float64
}

// Run streams batches through the model for cfg.Steps steps.
func Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Model == nil {
		return nil, errors.New("runner: no model")
	}
	if cfg.Steps <= 0 {
		return nil, errors.New("runner: steps must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("runner: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	samplerCh, samplerErr, err := dataset.StartSampler(ctx, dataset.SamplerOptions{
		Features:   cfg.Inputs,
		Labels:     cfg.Labels,
		Seed:       cfg.Seed,
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return nil, err
	}

	var window metrics.Window
	result := &Result{}
	for step := 1; step <= cfg.Steps; step++ {
		startData := time.Now()
		batch, err := nextBatch(ctx, samplerCh, samplerErr, cfg.BatchSize)
		if err != nil {
			return result, err
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		out, err := cfg.Model.Forward(batch)
		if err != nil {
			return result, errors.WithMessagef(err, "step %d", step)
		}
		computeTime := time.Since(startCompute)

		penalty := out.Penalties.Sum()
		window.Record(batch.Size(), dataTime, computeTime, penalty)
		result.Steps, result.Samples, result.LastPenalty = step, result.Samples+batch.Size(), penalty

		if step%cfg.LogEvery == 0 || step == cfg.Steps {
			snap := window.Snapshot()
			klog.Infof("step=%d samples_per_sec=%.1f data_ms=%.2f compute_ms=%.2f penalty=%.4f",
				step,
				snap.SamplesPerSec,
				snap.AvgDataMS,
				snap.AvgComputeMS,
				snap.LastPenalty,
			)
		}
	}
	return result, nil
}

func nextBatch(ctx context.Context, samples <-chan dataset.Sample, errs <-chan error, batchSize int) (model.Batch, error) {
	inputs := make([][]float32, 0, batchSize)
	labels := make([]int, 0, batchSize)
	for len(inputs) < batchSize {
		select {
		case <-ctx.Done():
			return model.Batch{}, ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return model.Batch{}, err
			}
		case sample, ok := <-samples:
			if !ok {
				return model.Batch{}, errors.New("sampler closed")
			}
			inputs = append(inputs, sample.Features)
			labels = append(labels, sample.Label)
		}
	}
	return model.Batch{Inputs: inputs, Labels: labels}, nil
}
