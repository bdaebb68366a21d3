package dataset

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

// Sample is one row of a matrix, ready for the model.
type Sample struct {
	Index    int
	Features []float32
	Label    int
}

// ErrPendingOverflow indicates the reordering buffer exceeded the configured bound.
var ErrPendingOverflow = errors.New("sampler: pending sample buffer exceeded")

const defaultPendingCap = 1024

// SamplerOptions configures the sample stream.
type SamplerOptions struct {
	Features   [][]float64
	Labels     []int
	Seed       int64
	NumWorkers int
	PendingCap int
	// Epochs bounds the stream; 0 streams until the context is cancelled.
	Epochs int
}

// StartSampler streams the rows of opts.Features in a shuffled order, reshuffled
// every epoch. Workers convert rows concurrently, but samples are delivered in the
// order drawn, so a seed always yields the same stream.
func StartSampler(parent context.Context, opts SamplerOptions) (<-chan Sample, <-chan error, error) {
	if len(opts.Features) == 0 {
		return nil, nil, errors.New("sampler: no samples provided")
	}
	if len(opts.Labels) != len(opts.Features) {
		return nil, nil, errors.Errorf("sampler: %d labels for %d samples", len(opts.Labels), len(opts.Features))
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.PendingCap <= 0 {
		opts.PendingCap = defaultPendingCap
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	ctx, cancel := context.WithCancel(parent)

	jobs := make(chan sampleJob, opts.NumWorkers)
	results := make(chan converted, opts.NumWorkers)
	out := make(chan Sample, opts.NumWorkers*2)
	errCh := make(chan error, 1)

	rng := rand.New(rand.NewSource(opts.Seed))

	go produceJobs(ctx, jobs, len(opts.Features), opts.Epochs, rng)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, opts.Features, opts.Labels)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer cancel()
		defer close(out)
		defer close(errCh)
		if err := runAggregator(ctx, results, out, opts.PendingCap); err != nil {
			errCh <- err
		}
	}()

	return out, errCh, nil
}

type sampleJob struct {
	id    int64
	index int
}

type converted struct {
	id     int64
	sample Sample
}

func worker(ctx context.Context, jobs <-chan sampleJob, results chan<- converted, features [][]float64, labels []int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			row := features[job.index]
			values := make([]float32, len(row))
			for i, v := range row {
				values[i] = float32(v)
			}
			res := converted{id: job.id, sample: Sample{Index: job.index, Features: values, Label: labels[job.index]}}
			select {
			case <-ctx.Done():
				return
			case results <- res:
			}
		}
	}
}

func runAggregator(ctx context.Context, results <-chan converted, out chan<- Sample, pendingCap int) error {
	pending := make(map[int64]Sample)
	var nextID int64
	for {
		if sample, ok := pending[nextID]; ok {
			select {
			case <-ctx.Done():
				return nil
			case out <- sample:
			}
			delete(pending, nextID)
			nextID++
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-results:
			if !ok {
				return nil
			}
			pending[res.id] = res.sample
			if len(pending) > pendingCap {
				return ErrPendingOverflow
			}
		}
	}
}

func produceJobs(ctx context.Context, jobs chan<- sampleJob, n, epochs int, rng *rand.Rand) {
	defer close(jobs)
	var jobID int64
	for epoch := 0; epochs <= 0 || epoch < epochs; epoch++ {
		for _, index := range epochOrder(n, rng) {
			select {
			case <-ctx.Done():
				return
			case jobs <- sampleJob{id: jobID, index: index}:
				jobID++
			}
		}
	}
}

// epochOrder is a permutation of [0, n) drawn from rng.
func epochOrder(n int, rng *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}
