package metrics

import "time"

// Window accumulates timing stats across multiple forward passes.
type Window struct {
	samples     int
	data        time.Duration
	compute     time.Duration
	steps       int
	penaltySum  float64
	lastPenalty float64
}

// Record adds a new measurement to the window. penalty is the summed alignment
// regularizer of the step, 0 when no alignment stage is enabled.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, penalty float64) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.penaltySum += penalty
	w.lastPenalty = penalty
}

// Steps is the number of measurements since the last snapshot.
func (w *Window) Steps() int { return w.steps }

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, LastPenalty: w.lastPenalty}
	total := w.data + w.compute
	if total > 0 {
		snap.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.AvgPenalty = w.penaltySum / float64(w.steps)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgDataMS     float64
	AvgComputeMS  float64
	AvgPenalty    float64
	LastPenalty   float64
}
