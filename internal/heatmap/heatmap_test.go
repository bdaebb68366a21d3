package heatmap

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

func randomRows(seed int64, n, width int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, width)
		for j := range rows[i] {
			rows[i][j] = rng.NormFloat64()
		}
	}
	return rows
}

func TestPCAProjectsOntoMainAxis(t *testing.T) {
	// Points along (1, 1) with a little noise on (1, -1).
	var rows [][]float64
	for i := -5; i <= 5; i++ {
		s, n := float64(i), 0.01*float64(i%2)
		rows = append(rows, []float64{3 + s + n, -2 + s - n})
	}
	pca, err := FitPCA(rows, 4)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if pca.Components() != 4 {
		t.Fatalf("components %d want 4", pca.Components())
	}
	projected, err := pca.Transform([][]float64{{3, -2}, {4, -1}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if math.Abs(projected[0][0]) > 1e-9 {
		t.Fatalf("the mean must project to 0, got %v", projected[0])
	}
	if got := math.Abs(projected[1][0]); math.Abs(got-math.Sqrt2) > 1e-3 {
		t.Fatalf("first component %f want √2", got)
	}
	if projected[1][2] != 0 || projected[1][3] != 0 {
		t.Fatalf("components beyond the rank must be zero: %v", projected[1])
	}
}

func TestPCARejectsRaggedRows(t *testing.T) {
	if _, err := FitPCA([][]float64{{1, 2}, {3}}, 2); err == nil {
		t.Fatal("expected an error for ragged rows")
	}
	pca, err := FitPCA([][]float64{{1, 2}, {3, 4}}, 1)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if _, err := pca.Transform([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("expected an error for a wider row")
	}
}

func TestRenderShapeAndRange(t *testing.T) {
	values := randomRows(3, 1, DefaultLayout.Cells())[0]
	img, err := Render(values, DefaultLayout)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(img) != Channels*Height*Width {
		t.Fatalf("got %d pixels want %d", len(img), Channels*Height*Width)
	}
	lo, hi := img[0], img[0]
	for _, v := range img {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo != 0 || hi != 1 {
		t.Fatalf("pixels not min-max normalized: [%f, %f]", lo, hi)
	}
}

func TestRenderRejectsWrongSize(t *testing.T) {
	if _, err := Render(make([]float64, 5), Layout{Rows: 2, Cols: 3}); err == nil {
		t.Fatal("expected an error for 5 values on a 2x3 layout")
	}
	if _, err := Render(nil, Layout{}); err == nil {
		t.Fatal("expected an error for an empty layout")
	}
}

func TestBuildKeepsOrder(t *testing.T) {
	layout := Layout{Rows: 2, Cols: 3}
	rows := randomRows(11, 8, 10)
	images, err := Build(context.Background(), rows, BuildOptions{Layout: layout, NumWorkers: 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(images.Pixels) != len(rows) {
		t.Fatalf("got %d images want %d", len(images.Pixels), len(rows))
	}
	projected, err := images.PCA.Transform(rows[5:6])
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want, err := Render(projected[0], layout)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := range want {
		if images.Pixels[5][i] != want[i] {
			t.Fatalf("image 5 differs from a direct render at pixel %d", i)
		}
	}

	if _, err := Build(context.Background(), rows, BuildOptions{Layout: DefaultLayout, PCA: images.PCA}); err == nil {
		t.Fatal("expected an error for a pca narrower than the layout")
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, randomRows(1, 4, 6), BuildOptions{Layout: Layout{Rows: 1, Cols: 2}}); err == nil {
		t.Fatal("expected a cancelled build to fail")
	}
}
