package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Expression is a gene-expression matrix: one row of Features per sample, one
// column per gene, in the gene order of the source file.
type Expression struct {
	Genes      []string
	SampleIDs  []string
	ClassNames []string
	// Labels index ClassNames, one per sample.
	Labels []int
	// Features is [sample][gene].
	Features [][]float64
}

// NumSamples is the number of samples (matrix rows).
func (e *Expression) NumSamples() int { return len(e.Features) }

// NumGenes is the number of genes (matrix columns).
func (e *Expression) NumGenes() int { return len(e.Genes) }

// ClassCounts returns the number of samples per class, indexed like ClassNames.
func (e *Expression) ClassCounts() []int {
	counts := make([]int, len(e.ClassNames))
	for _, l := range e.Labels {
		counts[l]++
	}
	return counts
}

// LoadCSV reads an expression matrix stored genes-by-samples: the first header row
// holds the class of each sample column, the second its sample id, and every
// following row a gene name and its expression in each sample. Empty and NaN
// cells read as 0.
func LoadCSV(path string) (*Expression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open matrix")
	}
	defer f.Close()

	expr, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read matrix %s", path)
	}
	return expr, nil
}

// ReadCSV parses a matrix in the layout described by LoadCSV.
func ReadCSV(r io.Reader) (*Expression, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	classRow, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "class header")
	}
	classes := append([]string(nil), classRow[1:]...)
	idRow, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "sample header")
	}
	ids := append([]string(nil), idRow[1:]...)
	numSamples := len(classes)
	if numSamples == 0 {
		return nil, errors.New("no sample columns")
	}

	var genes []string
	columns := make([][]float64, 0, 1024)
	for line := 3; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if line == 3 && isIndexNameRow(record) {
			continue
		}
		values := make([]float64, numSamples)
		for i, cell := range record[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, column %d", line, i+2)
			}
			values[i] = v
		}
		genes = append(genes, record[0])
		columns = append(columns, values)
	}
	if len(genes) == 0 {
		return nil, errors.New("no gene rows")
	}

	expr := &Expression{
		Genes:     genes,
		SampleIDs: ids,
		Features:  make([][]float64, numSamples),
	}
	for s := range expr.Features {
		row := make([]float64, len(genes))
		for g := range genes {
			row[g] = columns[g][s]
		}
		expr.Features[s] = row
	}
	expr.ClassNames, expr.Labels = encodeLabels(classes)
	return expr, nil
}

// isIndexNameRow detects the row some writers emit under a two-level header, naming
// the index column and leaving every other cell empty.
func isIndexNameRow(record []string) bool {
	for _, cell := range record[1:] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}

// encodeLabels numbers the distinct class names in sorted order.
func encodeLabels(classes []string) (names []string, labels []int) {
	index := map[string]int{}
	for _, c := range classes {
		index[c] = 0
	}
	names = make([]string, 0, len(index))
	for c := range index {
		names = append(names, c)
	}
	sort.Strings(names)
	for i, c := range names {
		index[c] = i
	}
	labels = make([]int, len(classes))
	for i, c := range classes {
		labels[i] = index[c]
	}
	return names, labels
}

// LoadDir loads every matrix under root and joins their samples. All matrices must
// list the same genes in the same order.
func LoadDir(root string) (*Expression, error) {
	paths, err := DiscoverMatrices(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no matrices discovered under %s", root)
	}
	parts := make([]*Expression, 0, len(paths))
	for _, p := range paths {
		part, err := LoadCSV(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return Merge(parts...)
}

// Merge joins the samples of matrices sharing one gene list, re-encoding labels over
// the union of their classes.
func Merge(parts ...*Expression) (*Expression, error) {
	if len(parts) == 0 {
		return nil, errors.New("merge: nothing to merge")
	}
	out := &Expression{Genes: parts[0].Genes}
	var classes []string
	for i, part := range parts {
		if len(part.Genes) != len(out.Genes) {
			return nil, errors.Errorf("merge: matrix %d has %d genes, want %d", i, len(part.Genes), len(out.Genes))
		}
		for g, name := range part.Genes {
			if name != out.Genes[g] {
				return nil, errors.Errorf("merge: matrix %d gene %d is %q, want %q", i, g, name, out.Genes[g])
			}
		}
		out.SampleIDs = append(out.SampleIDs, part.SampleIDs...)
		out.Features = append(out.Features, part.Features...)
		for _, l := range part.Labels {
			classes = append(classes, part.ClassNames[l])
		}
	}
	out.ClassNames, out.Labels = encodeLabels(classes)
	return out, nil
}
