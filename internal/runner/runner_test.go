package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"gpnet/internal/config"
	"gpnet/internal/model"
)

type countingModel struct {
	batches int
	width   int
	fail    bool
}

func (m *countingModel) NumClasses() int { return 3 }

func (m *countingModel) Forward(batch model.Batch) (*model.Output, error) {
	if m.fail {
		return nil, errors.New("boom")
	}
	for _, row := range batch.Inputs {
		if len(row) != m.width {
			return nil, errors.Errorf("width %d", len(row))
		}
	}
	m.batches++
	return &model.Output{Penalties: model.Penalties{Normalization: float64(m.batches)}}, nil
}

func TestRunStepsThroughBatches(t *testing.T) {
	m := &countingModel{width: 2}
	res, err := Run(context.Background(), RunConfig{
		Model:      m,
		Inputs:     [][]float64{{1, 2}, {3, 4}, {5, 6}},
		Labels:     []int{0, 1, 2},
		Steps:      5,
		BatchSize:  2,
		NumWorkers: 2,
		LogEvery:   2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.batches != 5 || res.Steps != 5 || res.Samples != 10 || res.LastPenalty != 5 {
		t.Fatalf("unexpected result %+v after %d batches", res, m.batches)
	}
}

func TestRunPropagatesModelErrors(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{
		Model:     &countingModel{fail: true},
		Inputs:    [][]float64{{1}},
		Labels:    []int{0},
		Steps:     3,
		BatchSize: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("expected a step 1 error, got %v", err)
	}
}

func TestRunValidatesConfig(t *testing.T) {
	if _, err := Run(context.Background(), RunConfig{}); err == nil {
		t.Fatal("expected an error without a model")
	}
	if _, err := Run(context.Background(), RunConfig{Model: &countingModel{}, Steps: 1}); err == nil {
		t.Fatal("expected an error without a batch size")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, RunConfig{
		Model:     &countingModel{width: 1},
		Inputs:    [][]float64{{1}},
		Labels:    []int{0},
		Steps:     10,
		BatchSize: 1,
	})
	if err == nil {
		t.Fatal("expected a cancelled run to fail")
	}
}

// writeMatrix writes genes × samples with three classes.
func writeMatrix(t *testing.T, genes, samples int) string {
	t.Helper()
	var b strings.Builder
	classes := []string{"BRCA", "LUAD", "COAD"}
	for s := 0; s < samples; s++ {
		fmt.Fprintf(&b, ",%s", classes[s%len(classes)])
	}
	b.WriteString("\n")
	for s := 0; s < samples; s++ {
		fmt.Fprintf(&b, ",s%d", s)
	}
	b.WriteString("\n")
	for g := 0; g < genes; g++ {
		fmt.Fprintf(&b, "G%d", g)
		for s := 0; s < samples; s++ {
			fmt.Fprintf(&b, ",%d", (g*7+s*3)%11)
		}
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "tumors.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	return path
}

func TestPrepareAndRunEveryMode(t *testing.T) {
	path := writeMatrix(t, 10, 6)
	for _, mode := range []config.Mode{config.ModePointNet, config.ModeDense, config.ModeFNN, config.ModeHeatmap} {
		cfg := config.Default()
		cfg.Data.Path = path
		cfg.Model.Mode = mode
		cfg.Model.UseAlignmentBeta = true
		cfg.Model.DenseHeadWidths = []int{8}
		cfg.Heatmap = config.Heatmap{Rows: 2, Cols: 3, Workers: 2}
		if mode == config.ModeDense {
			cfg.Data.Coordinates = "augmented"
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: Validate: %v", mode, err)
		}

		expr, err := LoadExpression(cfg.Data.Path)
		if err != nil {
			t.Fatalf("%s: LoadExpression: %v", mode, err)
		}
		m, inputs, err := Prepare(context.Background(), nil, cfg, expr)
		if mode == config.ModeHeatmap && errors.Is(err, model.ErrUnsupportedBackend) {
			t.Logf("%s: %v", mode, err)
			continue
		}
		if err != nil {
			t.Fatalf("%s: Prepare: %v", mode, err)
		}
		if m.NumClasses() != 3 || len(inputs) != 6 {
			t.Fatalf("%s: classes=%d inputs=%d", mode, m.NumClasses(), len(inputs))
		}
		res, err := Run(context.Background(), RunConfig{
			Model: m, Inputs: inputs, Labels: expr.Labels,
			Steps: 2, BatchSize: 4, NumWorkers: 2, Seed: 1,
		})
		if err != nil {
			t.Fatalf("%s: Run: %v", mode, err)
		}
		if res.Samples != 8 {
			t.Fatalf("%s: ran %d samples", mode, res.Samples)
		}
	}
}
