package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger"
)

// Axis and grid layout, in pixels or counts.
const (
	horizontalGridLines = 10
	maxVerticalGrid     = 20
	priceTicks          = 6
	maxDateLabels       = 5

	priceLabelInset = 10.0
	dateLabelInset  = 5.0

	flagPole     = 40.0
	flagTipWidth = 20.0
)

// Anchoring selects how stored annotations are placed on a frame.
type Anchoring int

const (
	// AnchorData reprojects annotations from their candle index and price,
	// so they follow the candles through resizes.
	AnchorData Anchoring = iota
	// AnchorPixel draws annotations at the pixel coordinates they were drawn at.
	AnchorPixel
)

func (a Anchoring) String() string {
	if a == AnchorPixel {
		return "pixel"
	}
	return "data"
}

// ParseAnchoring reads "data" or "pixel".
func ParseAnchoring(s string) (Anchoring, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "data", "":
		return AnchorData, nil
	case "pixel":
		return AnchorPixel, nil
	}
	return AnchorData, fmt.Errorf("unknown anchoring %q", s)
}

// Frame is everything one redraw needs.
type Frame struct {
	Candles     []core.Candle
	Geometry    Geometry
	Range       PriceRange
	Annotations []Annotation
	Session     SessionState
	Hover       HoverState
}

// CandleShape is the pixel geometry of one candle.
type CandleShape struct {
	X          float64
	WickTop    float64
	WickBottom float64
	BodyLeft   float64
	BodyTop    float64
	BodyWidth  float64
	BodyHeight float64
	Bullish    bool
}

// ShapeCandle lays out the i-th candle. The body is at least one pixel tall
// and the wick always covers it.
func ShapeCandle(c core.Candle, i int, m Mapper) CandleShape {
	x := m.Geometry.CandleCenter(i)
	yOpen, yClose := m.Y(c.Open), m.Y(c.Close)

	top := math.Min(yOpen, yClose)
	height := math.Max(1, math.Abs(yOpen-yClose))

	return CandleShape{
		X:          x,
		WickTop:    math.Min(m.Y(c.High), top),
		WickBottom: math.Max(m.Y(c.Low), top+height),
		BodyLeft:   x - m.Geometry.CandleWidth/2,
		BodyTop:    top,
		BodyWidth:  m.Geometry.CandleWidth,
		BodyHeight: height,
		Bullish:    c.Bullish(),
	}
}

// Renderer paints frames onto a Surface.
type Renderer struct {
	log       logger.Logger
	theme     Theme
	anchoring Anchoring
}

// NewRenderer creates a renderer with the given theme and anchoring mode.
func NewRenderer(theme Theme, anchoring Anchoring, log logger.Logger) *Renderer {
	return &Renderer{log: log, theme: theme, anchoring: anchoring}
}

// Render clears s and draws f back to front. It returns false when nothing
// was drawn because the surface is missing or has no area.
func (r *Renderer) Render(s Surface, f Frame) bool {
	if s == nil {
		r.log.Debug("render skipped, no surface")
		return false
	}

	g := f.Geometry
	if g.CanvasWidth <= 0 || g.CanvasHeight <= 0 {
		r.log.Debugf("render skipped, empty canvas %.0fx%.0f", g.CanvasWidth, g.CanvasHeight)
		return false
	}

	r.background(s, g)
	r.grid(s, g, len(f.Candles))

	m, ok := NewMapper(g, f.Range)
	if !ok {
		r.log.WithFields(map[string]any{
			"width":   g.CanvasWidth,
			"height":  g.CanvasHeight,
			"candles": len(f.Candles),
		}).Debug("plot area too small for price mapping")
		return true
	}

	for i, c := range f.Candles {
		r.candle(s, ShapeCandle(c, i, m))
	}

	for _, a := range f.Annotations {
		r.annotation(s, a, m)
	}

	r.preview(s, f.Session, m)
	if f.Session.Pending != nil {
		r.annotation(s, *f.Session.Pending, m)
	}

	if f.Hover.Visible {
		r.tooltip(s, f.Hover, g)
	}

	r.priceAxis(s, m)
	r.dateAxis(s, g, f.Candles)

	return true
}

func (r *Renderer) background(s Surface, g Geometry) {
	s.SetFillColor(r.theme.Background)
	rectPath(s, 0, 0, g.CanvasWidth, g.CanvasHeight)
	s.Fill()
}

func (r *Renderer) grid(s Surface, g Geometry, count int) {
	s.SetStrokeColor(r.theme.Grid)
	s.SetLineWidth(r.theme.GridWidth)
	s.SetLineDash()

	for i := 0; i <= horizontalGridLines; i++ {
		y := float64(i) * g.CanvasHeight / horizontalGridLines
		line(s, 0, y, g.CanvasWidth, y)
	}

	vertical := min(maxVerticalGrid, count)
	if vertical == 0 {
		return
	}
	for i := 0; i <= vertical; i++ {
		x := float64(i) * g.CanvasWidth / float64(vertical)
		line(s, x, 0, x, g.CanvasHeight)
	}
}

func (r *Renderer) candle(s Surface, c CandleShape) {
	fill, border := r.theme.DownFill, r.theme.DownBorder
	if c.Bullish {
		fill, border = r.theme.UpFill, r.theme.UpBorder
	}

	s.SetStrokeColor(border)
	s.SetLineWidth(1)
	s.SetLineDash()
	line(s, c.X, c.WickTop, c.X, c.WickBottom)

	s.SetFillColor(fill)
	rectPath(s, c.BodyLeft, c.BodyTop, c.BodyWidth, c.BodyHeight)
	s.FillStroke()
}

func (r *Renderer) annotation(s Surface, a Annotation, m Mapper) {
	switch a := a.(type) {
	case TrendLine:
		start, end := Point{X: a.StartX, Y: a.StartY}, Point{X: a.EndX, Y: a.EndY}
		if r.anchoring == AnchorData {
			start, end = m.ToPixel(a.Start), m.ToPixel(a.End)
		}
		r.trendLine(s, start, end)

	case HorizontalLine:
		y := a.Y
		if r.anchoring == AnchorData {
			y = m.Y(a.Price)
		}
		r.horizontalLine(s, y, a.Price, m.Geometry)

	case Flag:
		at := Point{X: a.X, Y: a.Y}
		if r.anchoring == AnchorData {
			at = m.ToPixel(a.Anchor)
		}
		r.flag(s, at, a.Price, a.Text)
	}
}

func (r *Renderer) preview(s Surface, state SessionState, m Mapper) {
	if state.Phase != PhaseDragging || state.Anchor == nil {
		return
	}

	anchor := *state.Anchor
	cursor := anchor
	if state.Cursor != nil {
		cursor = *state.Cursor
	}

	switch state.ArmedTool {
	case ToolTrendLine:
		r.trendLine(s, anchor, cursor)
	case ToolHorizontalLine:
		r.horizontalLine(s, anchor.Y, m.Price(anchor.Y), m.Geometry)
	case ToolFlag:
		r.flag(s, anchor, m.Price(anchor.Y), "")
	}
}

func (r *Renderer) trendLine(s Surface, start, end Point) {
	s.SetStrokeColor(r.theme.Trend)
	s.SetLineWidth(r.theme.TrendWidth)
	s.SetLineDash()
	line(s, start.X, start.Y, end.X, end.Y)
}

func (r *Renderer) horizontalLine(s Surface, y, price float64, g Geometry) {
	s.SetStrokeColor(r.theme.Horizontal)
	s.SetLineWidth(r.theme.HorizontalWidth)
	s.SetLineDash(r.theme.HorizontalDash...)
	line(s, 0, y, g.CanvasWidth, y)
	s.SetLineDash()

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	s.SetFillColor(r.theme.Horizontal)
	s.SetFontSize(r.theme.FontSize)
	s.Text(formatPrice(r.theme.Currency, price), 5, y-5, AlignLeft)
}

func (r *Renderer) flag(s Surface, at Point, price float64, text string) {
	s.SetStrokeColor(r.theme.Flag)
	s.SetFillColor(r.theme.Flag)
	s.SetLineWidth(2)
	s.SetLineDash()
	line(s, at.X, at.Y, at.X, at.Y-flagPole)

	s.MoveTo(at.X, at.Y-flagPole)
	s.LineTo(at.X+flagTipWidth, at.Y-flagPole+10)
	s.LineTo(at.X, at.Y-flagPole+20)
	s.ClosePath()
	s.Fill()

	s.SetFontSize(r.theme.FontSize)
	if !math.IsNaN(price) {
		s.Text(formatPrice(r.theme.Currency, price), at.X-5, at.Y-25, AlignRight)
	}
	if text != "" {
		s.SetFillColor(r.theme.Text)
		s.Text(text, at.X+25, at.Y-30, AlignLeft)
	}
}

func (r *Renderer) tooltip(s Surface, hover HoverState, g Geometry) {
	o := TooltipOrigin(hover.Pointer, g)

	s.SetLineDash()
	s.SetFillColor(r.theme.TooltipShadow)
	rectPath(s, o.X+3, o.Y+3, tooltipWidth, tooltipHeight)
	s.Fill()

	s.SetFillColor(r.theme.TooltipBackground)
	s.SetStrokeColor(r.theme.TooltipBorder)
	s.SetLineWidth(1)
	rectPath(s, o.X, o.Y, tooltipWidth, tooltipHeight)
	s.FillStroke()

	lines := TooltipLines(hover.Hit, r.theme)
	s.SetFontSize(r.theme.TooltipFontSize)
	for i, text := range lines {
		color := r.theme.Text
		if i == len(lines)-1 {
			color = r.theme.UpBorder
			if abs, _ := hover.Hit.Change(); abs < 0 {
				color = r.theme.DownBorder
			}
		}
		s.SetFillColor(color)
		y := o.Y + tooltipPadding*2 + float64(i)*tooltipLeading
		s.Text(text, o.X+tooltipPadding, y, AlignLeft)
	}
}

func (r *Renderer) priceAxis(s Surface, m Mapper) {
	s.SetFillColor(r.theme.Text)
	s.SetFontSize(r.theme.FontSize)

	for i := 0; i <= priceTicks; i++ {
		price := m.Range.Min + m.Range.Span()*float64(i)/priceTicks
		y := m.Y(price)
		s.Text(formatPrice(r.theme.Currency, price), m.Geometry.CanvasWidth-priceLabelInset, y+4, AlignRight)
	}
}

func (r *Renderer) dateAxis(s Surface, g Geometry, candles []core.Candle) {
	n := len(candles)
	labels := min(maxDateLabels, n)
	if labels == 0 {
		return
	}

	layout := r.theme.AxisDateLayout
	first, last := candles[0].Time, candles[n-1].Time
	if first.YearDay() == last.YearDay() && first.Year() == last.Year() {
		layout = r.theme.AxisTimeLayout
	}

	s.SetFillColor(r.theme.Text)
	s.SetFontSize(r.theme.FontSize)

	for i := 0; i < labels; i++ {
		idx := 0
		if labels > 1 {
			idx = i * (n - 1) / (labels - 1)
		}
		s.Text(candles[idx].Time.Format(layout), g.CandleCenter(idx), g.CanvasHeight-dateLabelInset, AlignCenter)
	}
}
