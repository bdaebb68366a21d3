package pointnet

import (
	"fmt"

	. "github.com/gomlx/gomlx/graph"
	"github.com/pkg/errors"
)

// ErrConfigurationConflict is returned when more than one sample pooling strategy is enabled.
var ErrConfigurationConflict = errors.New("pointnet: attention pooling and dense encoder pooling are mutually exclusive")

// ShapeMismatchError reports an input whose width disagrees with what a component was configured for.
type ShapeMismatchError struct {
	Stage    string
	Axis     string
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("pointnet: %s: %s mismatch: expected %d, got %d", e.Stage, e.Axis, e.Expected, e.Actual)
}

// mustRank panics with a *ShapeMismatchError if x does not have the given rank.
func mustRank(stage string, x *Node, rank int) {
	if x.Rank() != rank {
		panic(&ShapeMismatchError{Stage: stage, Axis: "rank", Expected: rank, Actual: x.Rank()})
	}
}

// mustChannels checks a [batch, channels, points] tensor has the expected channel width.
func mustChannels(stage string, x *Node, channels int) {
	mustRank(stage, x, 3)
	if got := x.Shape().Dim(1); got != channels {
		panic(&ShapeMismatchError{Stage: stage, Axis: "channels", Expected: channels, Actual: got})
	}
}

// mustPoints checks a [batch, channels, points] tensor has the expected number of points.
func mustPoints(stage string, x *Node, points int) {
	if got := x.Shape().Dim(2); got != points {
		panic(&ShapeMismatchError{Stage: stage, Axis: "points", Expected: points, Actual: got})
	}
}
