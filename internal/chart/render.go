package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
)

// RenderOptions sizes the chart image and fixes the value axis.
type RenderOptions struct {
	Width  int
	Height int
	MinY   float64
	MaxY   float64
}

// DefaultRenderOptions fits the 0-10 pain scale.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Width: 800, Height: 400, MinY: 0, MaxY: 10}
}

var (
	colorBackground = color.White
	colorAxis       = color.RGBA{80, 80, 80, 255}
	colorGrid       = color.RGBA{225, 225, 225, 255}
	colorLine       = color.RGBA{204, 0, 0, 255}
	colorEmpty      = color.RGBA{190, 190, 190, 255}
)

const margin = 40

// RenderPNG draws the series as a line chart with point markers. An empty
// series yields a placeholder image with a crossed-out plot area.
func RenderPNG(points []Point, opts RenderOptions) ([]byte, error) {
	if opts.Width <= 2*margin || opts.Height <= 2*margin {
		def := DefaultRenderOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.MaxY <= opts.MinY {
		opts.MinY, opts.MaxY = 0, 10
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorBackground}, image.Point{}, draw.Src)

	plot := image.Rect(margin, margin/2, opts.Width-margin/2, opts.Height-margin)
	for v := opts.MinY; v <= opts.MaxY; v++ {
		y := scaleY(v, opts, plot)
		drawLine(img, plot.Min.X, y, plot.Max.X, y, colorGrid)
	}
	drawLine(img, plot.Min.X, plot.Min.Y, plot.Min.X, plot.Max.Y, colorAxis)
	drawLine(img, plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y, colorAxis)

	if len(points) == 0 {
		drawLine(img, plot.Min.X, plot.Min.Y, plot.Max.X, plot.Max.Y, colorEmpty)
		drawLine(img, plot.Min.X, plot.Max.Y, plot.Max.X, plot.Min.Y, colorEmpty)
		return encode(img)
	}

	first, last := points[0].Time, points[len(points)-1].Time
	span := last.Sub(first).Seconds()
	xs := make([]int, len(points))
	ys := make([]int, len(points))
	for i, p := range points {
		var frac float64
		switch {
		case span > 0:
			frac = p.Time.Sub(first).Seconds() / span
		case len(points) > 1:
			frac = float64(i) / float64(len(points)-1)
		default:
			frac = 0.5
		}
		xs[i] = plot.Min.X + int(frac*float64(plot.Dx()))
		ys[i] = scaleY(p.Value, opts, plot)
	}
	for i := 1; i < len(points); i++ {
		drawLine(img, xs[i-1], ys[i-1], xs[i], ys[i], colorLine)
	}
	for i := range points {
		drawMarker(img, xs[i], ys[i], colorLine)
	}
	return encode(img)
}

func scaleY(v float64, opts RenderOptions, plot image.Rectangle) int {
	if math.IsNaN(v) || v < opts.MinY {
		v = opts.MinY
	}
	if v > opts.MaxY {
		v = opts.MaxY
	}
	frac := (v - opts.MinY) / (opts.MaxY - opts.MinY)
	return plot.Max.Y - int(frac*float64(plot.Dy()))
}

// drawLine rasterizes a segment with Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawMarker(img *image.RGBA, x, y int, c color.Color) {
	r := image.Rect(x-3, y-3, x+4, y+4)
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

func encode(img image.Image) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
