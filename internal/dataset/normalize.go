package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Standardize z-scores every value of rows in place using the mean and population
// standard deviation of the whole matrix, and returns them. A constant matrix is
// only centered.
func Standardize(rows [][]float64) (mean, std float64) {
	mean, std = matrixMeanStd(rows)
	for _, row := range rows {
		floats.AddConst(-mean, row)
		if std > 0 {
			floats.Scale(1/std, row)
		}
	}
	return mean, std
}

// matrixMeanStd combines per-row moments, so the matrix is never flattened.
func matrixMeanStd(rows [][]float64) (mean, std float64) {
	n := 0
	means := make([]float64, len(rows))
	vars := make([]float64, len(rows))
	weights := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		m, s := stat.PopMeanStdDev(row, nil)
		if len(row) == 1 || math.IsNaN(s) {
			s = 0
		}
		means[i], vars[i], weights[i] = m, s*s, float64(len(row))
		n += len(row)
	}
	if n == 0 {
		return 0, 0
	}
	mean = stat.Mean(means, weights)
	variance := 0.0
	for i := range rows {
		d := means[i] - mean
		variance += weights[i] * (vars[i] + d*d)
	}
	return mean, math.Sqrt(variance / float64(n))
}
