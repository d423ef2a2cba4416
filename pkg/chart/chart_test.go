package chart

import (
	"image/color"
	"time"

	"github.com/raykavin/chartdesk/pkg/core"
)

// sampleCandles builds daily candles with the given closes. Each opens one
// unit below its close, so every candle is bullish.
func sampleCandles(closes ...float64) []core.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		candles[i] = core.Candle{
			Time:  start.AddDate(0, 0, i),
			Open:  c - 1,
			High:  c + 2,
			Low:   c - 3,
			Close: c,
		}
	}
	return candles
}

type surfaceOp struct {
	name   string
	fill   color.NRGBA
	stroke color.NRGBA
	dashed bool
	path   []Point
	text   string
	at     Point
}

// recordingSurface keeps every paint operation for inspection.
type recordingSurface struct {
	width, height float64

	fill   color.NRGBA
	stroke color.NRGBA
	dash   []float64
	path   []Point
	ops    []surfaceOp
}

func newRecordingSurface(width, height float64) *recordingSurface {
	return &recordingSurface{width: width, height: height}
}

func (r *recordingSurface) Size() (float64, float64)     { return r.width, r.height }
func (r *recordingSurface) SetStrokeColor(c color.NRGBA) { r.stroke = c }
func (r *recordingSurface) SetFillColor(c color.NRGBA)   { r.fill = c }
func (r *recordingSurface) SetLineWidth(float64)         {}
func (r *recordingSurface) SetLineDash(dash ...float64)  { r.dash = dash }
func (r *recordingSurface) SetFontSize(float64)          {}
func (r *recordingSurface) MoveTo(x, y float64)          { r.path = append(r.path, Point{x, y}) }
func (r *recordingSurface) LineTo(x, y float64)          { r.path = append(r.path, Point{x, y}) }
func (r *recordingSurface) ClosePath()                   {}
func (r *recordingSurface) Stroke()                      { r.paint("stroke") }
func (r *recordingSurface) Fill()                        { r.paint("fill") }
func (r *recordingSurface) FillStroke()                  { r.paint("fillstroke") }

func (r *recordingSurface) Text(text string, x, y float64, _ TextAlign) {
	r.ops = append(r.ops, surfaceOp{name: "text", fill: r.fill, text: text, at: Point{x, y}})
}

func (r *recordingSurface) paint(name string) {
	r.ops = append(r.ops, surfaceOp{
		name:   name,
		fill:   r.fill,
		stroke: r.stroke,
		dashed: len(r.dash) > 0,
		path:   r.path,
	})
	r.path = nil
}

// first returns the index of the first op matching fn, or -1.
func (r *recordingSurface) first(fn func(surfaceOp) bool) int {
	for i, op := range r.ops {
		if fn(op) {
			return i
		}
	}
	return -1
}

// last returns the index of the last op matching fn, or -1.
func (r *recordingSurface) last(fn func(surfaceOp) bool) int {
	for i := len(r.ops) - 1; i >= 0; i-- {
		if fn(r.ops[i]) {
			return i
		}
	}
	return -1
}
