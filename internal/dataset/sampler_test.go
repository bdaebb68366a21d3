package dataset

import (
	"context"
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"time"
)

func TestEpochOrderDeterministic(t *testing.T) {
	order1 := epochOrder(10, rand.New(rand.NewSource(7)))
	order2 := epochOrder(10, rand.New(rand.NewSource(7)))
	if !reflect.DeepEqual(order1, order2) {
		t.Fatalf("epoch order not deterministic: %v vs %v", order1, order2)
	}
	sorted := append([]int(nil), order1...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("epoch order is not a permutation: %v", order1)
		}
	}
}

func TestSamplerDeterministicStream(t *testing.T) {
	opts := SamplerOptions{
		Features:   [][]float64{{0}, {1}, {2}, {3}, {4}},
		Labels:     []int{0, 1, 0, 1, 2},
		Seed:       123,
		NumWorkers: 3,
	}
	run1 := collectIndices(t, opts, 12)
	run2 := collectIndices(t, opts, 12)
	if !reflect.DeepEqual(run1, run2) {
		t.Fatalf("sampler order not deterministic: %v vs %v", run1, run2)
	}
	// Every epoch visits every sample once.
	seen := map[int]bool{}
	for _, idx := range run1[:5] {
		seen[idx] = true
	}
	if len(seen) != 5 {
		t.Fatalf("first epoch is not a permutation: %v", run1[:5])
	}
}

func TestSamplerBoundedEpochs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream, errCh, err := StartSampler(ctx, SamplerOptions{
		Features:   [][]float64{{0.5, 1.5}, {2.5, 3.5}, {4.5, 5.5}},
		Labels:     []int{2, 1, 0},
		NumWorkers: 2,
		Epochs:     2,
	})
	if err != nil {
		t.Fatalf("StartSampler error: %v", err)
	}
	count := 0
	for sample := range stream {
		if len(sample.Features) != 2 || sample.Features[0] != float32(sample.Index*2)+0.5 {
			t.Fatalf("unexpected sample %+v", sample)
		}
		if sample.Label != 2-sample.Index {
			t.Fatalf("label %d for index %d", sample.Label, sample.Index)
		}
		count++
	}
	if err := <-errCh; err != nil {
		t.Fatalf("sampler error: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 samples over 2 epochs, got %d", count)
	}
}

func TestSamplerRejectsMismatchedLabels(t *testing.T) {
	_, _, err := StartSampler(context.Background(), SamplerOptions{
		Features: [][]float64{{1}, {2}},
		Labels:   []int{0},
	})
	if err == nil {
		t.Fatal("expected an error for mismatched labels")
	}
}

func collectIndices(t *testing.T, opts SamplerOptions, count int) []int {
	ctx, cancel := context.WithCancel(context.Background())
	stream, errCh, err := StartSampler(ctx, opts)
	if err != nil {
		t.Fatalf("StartSampler error: %v", err)
	}
	defer cancel()

	out := make([]int, 0, count)
	deadline := time.After(time.Second)
	for len(out) < count {
		select {
		case sample, ok := <-stream:
			if !ok {
				t.Fatalf("stream closed early; collected %d samples", len(out))
			}
			out = append(out, sample.Index)
		case err := <-errCh:
			if err != nil {
				t.Fatalf("sampler reported error: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for samples")
		}
	}
	cancel()
	for err := range errCh {
		if err != nil {
			t.Fatalf("sampler emitted error after cancel: %v", err)
		}
	}
	return out
}
