package chart

import "math"

// Layout constants of the plot area, in pixels.
const (
	DefaultLeftMargin   = 40
	DefaultRightMargin  = 70
	DefaultTopMargin    = 20
	DefaultBottomMargin = 20

	MaxCandleWidth   = 15.0
	candleWidthRatio = 0.8
)

// Margins reserve room around the plot area for axis labels.
type Margins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// DefaultMargins returns the stock plot margins.
func DefaultMargins() Margins {
	return Margins{
		Left:   DefaultLeftMargin,
		Right:  DefaultRightMargin,
		Top:    DefaultTopMargin,
		Bottom: DefaultBottomMargin,
	}
}

// Geometry is the pixel layout of one frame. It is a pure function of the
// canvas size, margins and candle count, so it is recomputed on every redraw.
type Geometry struct {
	CanvasWidth   float64
	CanvasHeight  float64
	Margins       Margins
	CandleSpacing float64
	CandleWidth   float64
}

// NewGeometry lays out count candles on a width x height canvas.
func NewGeometry(width, height float64, margins Margins, count int) Geometry {
	g := Geometry{
		CanvasWidth:  width,
		CanvasHeight: height,
		Margins:      margins,
	}

	if count > 0 {
		g.CandleSpacing = g.DrawingWidth() / float64(count)
		g.CandleWidth = math.Min(g.CandleSpacing*candleWidthRatio, MaxCandleWidth)
	}

	return g
}

// DrawingWidth is the horizontal extent of the plot area.
func (g Geometry) DrawingWidth() float64 {
	return g.CanvasWidth - g.Margins.Left - g.Margins.Right
}

// DrawingHeight is the vertical extent of the plot area.
func (g Geometry) DrawingHeight() float64 {
	return g.CanvasHeight - g.Margins.Top - g.Margins.Bottom
}

// PlotLeft is the x of the left plot edge.
func (g Geometry) PlotLeft() float64 { return g.Margins.Left }

// PlotRight is the x of the right plot edge.
func (g Geometry) PlotRight() float64 { return g.CanvasWidth - g.Margins.Right }

// Valid reports whether the plot area is large enough for price mapping.
// Every caller must check it before dividing by DrawingHeight or spacing.
func (g Geometry) Valid() bool {
	return g.DrawingWidth() > 0 && g.DrawingHeight() > 0 && g.CandleSpacing > 0
}

// CandleCenter returns the x of the i-th candle's center.
func (g Geometry) CandleCenter(i int) float64 {
	return g.Margins.Left + float64(i)*g.CandleSpacing + g.CandleSpacing/2
}

// Contains reports whether p lies on the canvas.
func (g Geometry) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= g.CanvasWidth && p.Y <= g.CanvasHeight
}

// Clamp pulls p onto the canvas.
func (g Geometry) Clamp(p Point) Point {
	return Point{
		X: math.Max(0, math.Min(p.X, g.CanvasWidth)),
		Y: math.Max(0, math.Min(p.Y, g.CanvasHeight)),
	}
}
