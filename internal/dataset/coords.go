package dataset

import "math"

// CoordinateKind selects the fixed per-gene coordinate embedding.
type CoordinateKind string

const (
	// CoordinatesGrid lays genes out row-major on a square grid: 2 values per gene.
	CoordinatesGrid CoordinateKind = "grid"
	// CoordinatesIndex is the gene index: 1 value per gene.
	CoordinatesIndex CoordinateKind = "index"
	// CoordinatesAugmented is the grid position followed by the index: 3 values per gene.
	CoordinatesAugmented CoordinateKind = "augmented"
)

// Dim is the number of coordinate values per gene.
func (k CoordinateKind) Dim() int {
	switch k {
	case CoordinatesGrid:
		return 2
	case CoordinatesIndex:
		return 1
	case CoordinatesAugmented:
		return 3
	}
	return 0
}

// Coordinates returns the [gene][Dim] embedding of kind for n genes, or nil for an unknown kind.
func Coordinates(kind CoordinateKind, n int) [][]float64 {
	switch kind {
	case CoordinatesGrid:
		return GridCoordinates(n)
	case CoordinatesIndex:
		return IndexCoordinates(n)
	case CoordinatesAugmented:
		grid, index := GridCoordinates(n), IndexCoordinates(n)
		out := make([][]float64, n)
		for i := range out {
			out[i] = append(grid[i], index[i][0])
		}
		return out
	}
	return nil
}

// GridCoordinates places gene i at (i / side, i % side) with side = round(√n)+1, then
// z-scores all values together.
func GridCoordinates(n int) [][]float64 {
	side := int(math.Round(math.Sqrt(float64(n)))) + 1
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i / side), float64(i % side)}
	}
	Standardize(out)
	return out
}

// IndexCoordinates is the z-scored gene index.
func IndexCoordinates(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i)}
	}
	Standardize(out)
	return out
}
