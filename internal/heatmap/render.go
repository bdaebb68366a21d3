package heatmap

import (
	"image"
	"math"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	// Channels, Height and Width are the dimensions of a rendered heatmap.
	Channels = 3
	Height   = 64
	Width    = 80

	paletteSize = 256
	// canvasScale is the raster size of one heatmap cell before resizing.
	canvasScale = 8
)

// Layout is the cell grid a projected sample is drawn on.
type Layout struct {
	Rows, Cols int
}

// DefaultLayout draws 320 components as 16 rows of 20.
var DefaultLayout = Layout{Rows: 16, Cols: 20}

// Cells is the number of values a layout draws.
func (l Layout) Cells() int { return l.Rows * l.Cols }

var colors = newPalette()

func newPalette() palette.Palette {
	cmap := moreland.Kindlmann()
	cmap.SetMin(0)
	cmap.SetMax(1)
	return cmap.Palette(paletteSize)
}

// grid adapts one sample to plotter.GridXYZ, with row 0 at the top.
type grid struct {
	values []float64
	layout Layout
}

func (g grid) Dims() (c, r int)   { return g.layout.Cols, g.layout.Rows }
func (g grid) Z(c, r int) float64 { return g.values[(g.layout.Rows-1-r)*g.layout.Cols+c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// Render draws values as a color-mapped heatmap and returns it channels-first
// [Channels][Height][Width], flattened, min-max normalized to [0, 1].
func Render(values []float64, layout Layout) ([]float32, error) {
	if layout.Rows <= 0 || layout.Cols <= 0 {
		return nil, errors.Errorf("heatmap: invalid layout %dx%d", layout.Rows, layout.Cols)
	}
	if len(values) != layout.Cells() {
		return nil, errors.Errorf("heatmap: %d values for a %dx%d layout", len(values), layout.Rows, layout.Cols)
	}

	raster, err := rasterize(grid{values: values, layout: layout})
	if err != nil {
		return nil, err
	}
	resized := image.NewRGBA(image.Rect(0, 0, Width, Height))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), raster, raster.Bounds(), xdraw.Src, nil)
	return channelsFirst(resized), nil
}

func rasterize(g grid) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("heatmap: draw: %v", r)
		}
	}()
	h := plotter.NewHeatMap(g, colors)
	if h.Min == h.Max {
		// A flat grid still needs a non-empty range to pick a color.
		h.Min, h.Max = h.Min-0.5, h.Max+0.5
	}
	p := plot.New()
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.Add(h)

	canvas := vgimg.New(vg.Length(g.layout.Cols*canvasScale), vg.Length(g.layout.Rows*canvasScale))
	p.Draw(draw.New(canvas))
	return canvas.Image(), nil
}

// channelsFirst splits the RGB planes of img and min-max normalizes them together.
func channelsFirst(img *image.RGBA) []float32 {
	out := make([]float32, Channels*Height*Width)
	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			px := img.RGBAAt(x, y)
			for c, v := range [Channels]uint8{px.R, px.G, px.B} {
				f := float32(v)
				out[(c*Height+y)*Width+x] = f
				lo = min(lo, f)
				hi = max(hi, f)
			}
		}
	}
	span := hi - lo
	for i, v := range out {
		if span > 0 {
			out[i] = (v - lo) / span
		} else {
			out[i] = 0
		}
	}
	return out
}
