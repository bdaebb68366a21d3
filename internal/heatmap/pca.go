package heatmap

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA is a fitted principal component projection.
type PCA struct {
	mean []float64
	// vectors is [feature][component]; components past the rank of the fit are zero.
	vectors *mat.Dense
}

// FitPCA fits components principal directions to rows ([sample][feature]).
func FitPCA(rows [][]float64, components int) (*PCA, error) {
	if len(rows) == 0 {
		return nil, errors.New("pca: no samples")
	}
	if components <= 0 {
		return nil, errors.Errorf("pca: components must be positive, got %d", components)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, errors.New("pca: no features")
	}
	data := mat.NewDense(len(rows), width, nil)
	for i, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("pca: row %d has %d features, want %d", i, len(row), width)
		}
		data.SetRow(i, row)
	}

	mean := make([]float64, width)
	for j := range mean {
		mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	vectors := mat.NewDense(width, components, nil)
	if len(rows) > 1 {
		var pc stat.PC
		if !pc.PrincipalComponents(data, nil) {
			return nil, errors.New("pca: decomposition failed")
		}
		var all mat.Dense
		pc.VectorsTo(&all)
		_, found := all.Dims()
		if found > components {
			found = components
		}
		if found > 0 {
			vectors.Slice(0, width, 0, found).(*mat.Dense).Copy(all.Slice(0, width, 0, found))
		}
	}
	return &PCA{mean: mean, vectors: vectors}, nil
}

// Components is the projected width.
func (p *PCA) Components() int {
	_, c := p.vectors.Dims()
	return c
}

// Transform centers rows on the fitted mean and projects them.
func (p *PCA) Transform(rows [][]float64) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(p.mean)
	centered := mat.NewDense(len(rows), width, nil)
	for i, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("pca: row %d has %d features, want %d", i, len(row), width)
		}
		for j, v := range row {
			centered.Set(i, j, v-p.mean[j])
		}
	}
	var projected mat.Dense
	projected.Mul(centered, p.vectors)
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = mat.Row(nil, i, &projected)
	}
	return out, nil
}
