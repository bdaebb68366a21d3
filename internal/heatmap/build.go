package heatmap

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Layout Layout
	// PCA projects the samples; nil fits one on the samples being built.
	PCA        *PCA
	NumWorkers int
}

// Images holds rendered heatmaps, one flattened [Channels][Height][Width] image per sample.
type Images struct {
	PCA    *PCA
	Pixels [][]float32
}

// Build projects every row of samples with PCA and renders it. Rendering runs on
// NumWorkers goroutines; the output keeps the order of samples.
func Build(ctx context.Context, samples [][]float64, opts BuildOptions) (*Images, error) {
	if opts.Layout.Rows <= 0 || opts.Layout.Cols <= 0 {
		opts.Layout = DefaultLayout
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	pca := opts.PCA
	if pca == nil {
		fitted, err := FitPCA(samples, opts.Layout.Cells())
		if err != nil {
			return nil, err
		}
		pca = fitted
	}
	if pca.Components() != opts.Layout.Cells() {
		return nil, errors.Errorf("heatmap: pca has %d components, layout draws %d", pca.Components(), opts.Layout.Cells())
	}
	projected, err := pca.Transform(samples)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("heatmap: rendering %d samples on %d workers", len(projected), opts.NumWorkers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pixels := make([][]float32, len(projected))
	jobs := make(chan int, opts.NumWorkers)
	errCh := make(chan error, opts.NumWorkers)
	var wg sync.WaitGroup
	for w := 0; w < opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				img, err := Render(projected[i], opts.Layout)
				if err != nil {
					errCh <- errors.Wrapf(err, "sample %d", i)
					cancel()
					return
				}
				pixels[i] = img
			}
		}()
	}

feed:
	for i := range projected {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Images{PCA: pca, Pixels: pixels}, nil
}
