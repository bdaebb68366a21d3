package runner

import (
	"context"
	"os"

	"github.com/gomlx/gomlx/backends"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"gpnet/internal/config"
	"gpnet/internal/dataset"
	"gpnet/internal/heatmap"
	"gpnet/internal/model"
)

// LoadExpression reads a matrix file, or every matrix of a directory.
func LoadExpression(path string) (*dataset.Expression, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}
	if info.IsDir() {
		return dataset.LoadDir(path)
	}
	return dataset.LoadCSV(path)
}

// Prepare builds the model cfg selects for expr and the per-sample inputs it
// consumes. expr.Features is standardized in place.
func Prepare(ctx context.Context, backend backends.Backend, cfg *config.Config, expr *dataset.Expression) (model.Model, [][]float64, error) {
	if expr.NumSamples() == 0 || expr.NumGenes() == 0 {
		return nil, nil, errors.New("runner: empty expression matrix")
	}
	mean, std := dataset.Standardize(expr.Features)
	klog.Infof("samples=%d genes=%d classes=%d mean=%.4f std=%.4f",
		expr.NumSamples(), expr.NumGenes(), len(expr.ClassNames), mean, std)
	for i, name := range expr.ClassNames {
		klog.V(1).Infof("class=%d name=%s samples=%d", i, name, expr.ClassCounts()[i])
	}

	numClasses := len(expr.ClassNames)
	if cfg.Model.NumClasses > 0 {
		numClasses = cfg.Model.NumClasses
	}
	netCfg := cfg.PointNet(expr.NumGenes(), numClasses)

	switch cfg.Model.Mode {
	case config.ModePointNet:
		coords := dataset.Coordinates(cfg.Data.Coordinates, expr.NumGenes())
		m, err := model.NewPointNet(backend, netCfg, coords)
		if err != nil {
			return nil, nil, err
		}
		return m, expr.Features, nil

	case config.ModeDense:
		coords := dataset.Coordinates(cfg.Data.Coordinates, expr.NumGenes())
		m, err := model.NewDensePointNet(backend, netCfg, coords)
		if err != nil {
			return nil, nil, err
		}
		return m, expr.Features, nil

	case config.ModeHeatmap:
		images, err := heatmap.Build(ctx, expr.Features, heatmap.BuildOptions{
			Layout:     heatmap.Layout{Rows: cfg.Heatmap.Rows, Cols: cfg.Heatmap.Cols},
			NumWorkers: cfg.Heatmap.Workers,
		})
		if err != nil {
			return nil, nil, err
		}
		inputs := make([][]float64, len(images.Pixels))
		for i, px := range images.Pixels {
			row := make([]float64, len(px))
			for j, v := range px {
				row[j] = float64(v)
			}
			inputs[i] = row
		}
		m, err := model.NewHeatmapCNN(backend, numClasses)
		if err != nil {
			return nil, nil, err
		}
		return m, inputs, nil

	case config.ModeFNN:
		m, err := model.NewFNN(backend, expr.NumGenes(), numClasses)
		if err != nil {
			return nil, nil, err
		}
		return m, expr.Features, nil
	}
	return nil, nil, errors.Errorf("runner: unknown mode %q", cfg.Model.Mode)
}
