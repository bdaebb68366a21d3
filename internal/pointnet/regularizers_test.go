package pointnet

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func orthogonality(t *testing.T, transforms [][][]float32) float64 {
	t.Helper()
	exec := NewExec(newBackend(t), OrthogonalityLoss)
	return float64(tensors.ToScalar[float32](exec.Call(transforms)[0]))
}

func normalization(t *testing.T, y [][]float32) float64 {
	t.Helper()
	exec := NewExec(newBackend(t), NormalizationLoss)
	return float64(tensors.ToScalar[float32](exec.Call(y)[0]))
}

func TestOrthogonalityLoss(t *testing.T) {
	identity := [][][]float32{{{1, 0}, {0, 1}}, {{1, 0}, {0, 1}}}
	if got := orthogonality(t, identity); got != 0 {
		t.Fatalf("identity: got %f want 0", got)
	}

	c, s := float32(math.Cos(0.3)), float32(math.Sin(0.3))
	rotations := [][][]float32{{{c, -s}, {s, c}}, {{0, 1}, {1, 0}}}
	if got := orthogonality(t, rotations); got > 1e-6 {
		t.Fatalf("orthogonal matrices: got %f want ~0", got)
	}

	// (2I)(2I)ᵀ - I = 3I, whose Frobenius norm is 3·√2; the other sample contributes 0.
	mixed := [][][]float32{{{2, 0}, {0, 2}}, {{1, 0}, {0, 1}}}
	want := 3 * math.Sqrt2 / 2
	if got := orthogonality(t, mixed); math.Abs(got-want) > 1e-5 {
		t.Fatalf("mixed: got %f want %f", got, want)
	}

	shear := [][][]float32{{{1, 0.1}, {0, 1}}}
	if got := orthogonality(t, shear); got <= 0 {
		t.Fatalf("shear: got %f want > 0", got)
	}
}

func TestNormalizationLoss(t *testing.T) {
	if got := normalization(t, [][]float32{{1}, {1}, {1}}); got != 0 {
		t.Fatalf("all ones: got %f want 0", got)
	}
	prev := -1.0
	for _, d := range []float32{0.1, 0.5, 1, 2.5} {
		got := normalization(t, [][]float32{{1 + d}, {1 - d}})
		if math.Abs(got-float64(d)) > 1e-5 {
			t.Fatalf("|y-1|=%f: got %f", d, got)
		}
		if got <= prev {
			t.Fatalf("loss not increasing: %f after %f", got, prev)
		}
		prev = got
	}
}

func TestIdentityPatternCached(t *testing.T) {
	a := identityPattern(5, identityZeroFirst)
	b := identityPattern(5, identityZeroFirst)
	if &a[0] != &b[0] {
		t.Fatal("expected the cached pattern to be reused")
	}
	full := identityPattern(5, identityFull)
	if full[0] != 1 || a[0] != 0 {
		t.Fatalf("variants share storage: full[0]=%f zeroFirst[0]=%f", full[0], a[0])
	}
	for i := 1; i < 5; i++ {
		if a[i*5+i] != 1 || full[i*5+i] != 1 {
			t.Fatalf("diagonal entry %d not 1", i)
		}
	}
}

func TestHostPenaltiesMatchGraph(t *testing.T) {
	transforms := [][][]float32{
		{{1, 0.2, 0}, {0, 1, 0.3}, {0.1, 0, 0.9}},
		{{0.5, 0, 0}, {0, 2, 0}, {0, 0, 1}},
	}
	if graph, host := orthogonality(t, transforms), orthogonalityPenalty(transforms); math.Abs(graph-host) > 1e-4 {
		t.Fatalf("orthogonality: graph %f host %f", graph, host)
	}
	y := [][]float32{{0.25}, {1.5}, {-1}}
	if graph, host := normalization(t, y), normalizationPenalty(y); math.Abs(graph-host) > 1e-5 {
		t.Fatalf("normalization: graph %f host %f", graph, host)
	}
	if orthogonalityPenalty(nil) != 0 || normalizationPenalty(nil) != 0 {
		t.Fatal("empty batches must have no penalty")
	}
}

func TestPenaltyGradientsAtMinimum(t *testing.T) {
	cases := []struct {
		name  string
		loss  func(*Node) *Node
		input any
	}{
		{"orthogonality at identity", OrthogonalityLoss, [][][]float32{{{1, 0}, {0, 1}}, {{0, 1}, {1, 0}}}},
		{"normalization at one", NormalizationLoss, [][]float32{{1}, {1}}},
	}
	for _, tc := range cases {
		exec := NewExec(newBackend(t), func(x *Node) *Node {
			return Gradient(tc.loss(x), x)[0]
		})
		grad := exec.Call(tc.input)[0]
		for _, v := range tensors.CopyFlatData[float32](grad) {
			if math.IsNaN(float64(v)) || v != 0 {
				t.Fatalf("%s: gradient %v, want all zeros", tc.name, grad)
			}
		}
	}

	// Away from the minimum the gradient is the usual one: d|y-1|/dy = sign(y-1)/batch.
	exec := NewExec(newBackend(t), func(y *Node) *Node {
		return Gradient(NormalizationLoss(y), y)[0]
	})
	grad := tensors.CopyFlatData[float32](exec.Call([][]float32{{3}, {0}})[0])
	if math.Abs(float64(grad[0])-0.5) > 1e-6 || math.Abs(float64(grad[1])+0.5) > 1e-6 {
		t.Fatalf("normalization gradient %v, want [0.5 -0.5]", grad)
	}
}

// orthogonalityPenalty is OrthogonalityLoss computed with gonum on host values.
func orthogonalityPenalty(transforms [][][]float32) float64 {
	if len(transforms) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range transforms {
		k := len(t)
		m := mat.NewDense(k, k, nil)
		for i, row := range t {
			for j, v := range row {
				m.Set(i, j, float64(v))
			}
		}
		var gram mat.Dense
		gram.Mul(m, m.T())
		for i := 0; i < k; i++ {
			gram.Set(i, i, gram.At(i, i)-1)
		}
		total += mat.Norm(&gram, 2)
	}
	return total / float64(len(transforms))
}

// normalizationPenalty is NormalizationLoss computed with gonum on host values.
func normalizationPenalty(y [][]float32) float64 {
	if len(y) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range y {
		diff := make([]float64, len(row))
		for i, v := range row {
			diff[i] = float64(v) - 1
		}
		total += floats.Norm(diff, 2)
	}
	return total / float64(len(y))
}

