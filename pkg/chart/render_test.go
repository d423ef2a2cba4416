package chart

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger/zerolog"
)

func TestShapeCandleWickCoversBody(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	candles := make([]core.Candle, 500)
	for i := range candles {
		open := 50 + rnd.Float64()*100
		cl := open + (rnd.Float64()-0.5)*10
		if i%10 == 0 {
			cl = open
		}
		candles[i] = core.Candle{
			Open:  open,
			Close: cl,
			High:  max(open, cl) + rnd.Float64()*3,
			Low:   min(open, cl) - rnd.Float64()*3,
		}
		if i%25 == 0 {
			candles[i].High, candles[i].Low = max(open, cl), min(open, cl)
		}
	}

	g := NewGeometry(1200, 300, DefaultMargins(), len(candles))
	m, ok := NewMapper(g, PriceRangeOf(candles))
	require.True(t, ok)

	for i, c := range candles {
		shape := ShapeCandle(c, i, m)
		require.GreaterOrEqual(t, shape.BodyHeight, 1.0)
		require.LessOrEqual(t, shape.WickTop, shape.BodyTop, "candle %d", i)
		require.GreaterOrEqual(t, shape.WickBottom, shape.BodyTop+shape.BodyHeight, "candle %d", i)
		require.Equal(t, c.Close >= c.Open, shape.Bullish)
	}
}

func TestRenderSkips(t *testing.T) {
	r := NewRenderer(DefaultTheme(), AnchorData, zerolog.Nop())
	candles := sampleCandles(100, 101)

	assert.False(t, r.Render(nil, Frame{}))

	s := newRecordingSurface(0, 0)
	assert.False(t, r.Render(s, Frame{Candles: candles, Geometry: NewGeometry(0, 0, DefaultMargins(), 2)}))
	assert.Empty(t, s.ops)

	t.Run("plot area too small", func(t *testing.T) {
		theme := DefaultTheme()
		s := newRecordingSurface(100, 30)
		drawn := r.Render(s, Frame{
			Candles:  candles,
			Geometry: NewGeometry(100, 30, DefaultMargins(), len(candles)),
			Range:    PriceRangeOf(candles),
		})

		assert.True(t, drawn)
		assert.Equal(t, theme.Background, s.ops[0].fill)
		assert.Equal(t, -1, s.first(func(op surfaceOp) bool { return op.fill == theme.UpFill }))
	})
}

func TestRenderOrder(t *testing.T) {
	theme := DefaultTheme()
	v := newTestView(t)
	m, _ := v.Mapper()

	v.ArmTool(ToolTrendLine)
	drag(v, Point{X: 60, Y: 380}, Point{X: 700, Y: 30})
	v.ArmTool(ToolHorizontalLine)
	drag(v, Point{X: 0, Y: 200}, Point{X: 0, Y: 200})
	v.ArmTool(ToolTrendLine)
	v.PointerDown(Point{X: 100, Y: 100})
	v.PointerMove(Point{X: 200, Y: 150})

	frame := v.Frame()
	frame.Hover = HoverState{
		Visible: true,
		Pointer: Point{X: m.Geometry.CandleCenter(3), Y: 200},
		Hit:     Hit{Index: 3, Candle: frame.Candles[3], Prior: 99, HasPrior: true},
	}

	s := newRecordingSurface(800, 400)
	require.True(t, NewRenderer(theme, AnchorPixel, zerolog.Nop()).Render(s, frame))

	background := s.first(func(op surfaceOp) bool { return op.fill == theme.Background })
	grid := s.first(func(op surfaceOp) bool { return op.name == "stroke" && op.stroke == theme.Grid })
	lastGrid := s.last(func(op surfaceOp) bool { return op.name == "stroke" && op.stroke == theme.Grid })
	lastCandle := s.last(func(op surfaceOp) bool { return op.name == "fillstroke" && op.fill == theme.UpFill })
	trends := []int{}
	for i, op := range s.ops {
		if op.name == "stroke" && op.stroke == theme.Trend {
			trends = append(trends, i)
		}
	}
	hline := s.first(func(op surfaceOp) bool { return op.name == "stroke" && op.stroke == theme.Horizontal })
	tooltip := s.first(func(op surfaceOp) bool { return op.fill == theme.TooltipBackground })
	priceLabel := s.first(func(op surfaceOp) bool {
		return op.name == "text" && op.at.X == 800-priceLabelInset
	})
	dateLabel := s.last(func(op surfaceOp) bool { return op.name == "text" && op.text == "Mar 5" })

	require.Equal(t, 0, background)
	require.Len(t, trends, 2, "stored trend line and its preview")
	assert.Less(t, background, grid)
	assert.Less(t, lastGrid, lastCandle)
	assert.Less(t, lastCandle, trends[0])
	assert.Less(t, trends[0], hline)
	assert.Less(t, hline, trends[1])
	assert.Less(t, trends[1], tooltip)
	assert.Less(t, tooltip, priceLabel)
	assert.Less(t, priceLabel, dateLabel)

	assert.True(t, s.ops[hline].dashed)
	assert.Equal(t, []Point{{X: 60, Y: 380}, {X: 700, Y: 30}}, s.ops[trends[0]].path)

	var texts []string
	for _, op := range s.ops {
		if op.name == "text" {
			texts = append(texts, op.text)
		}
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "Change: +6.00 (+6.06%)")
	assert.Contains(t, joined, "Mar 1")
}

func TestRenderAnchoring(t *testing.T) {
	theme := DefaultTheme()
	candles := sampleCandles(100, 102, 99, 105, 103)

	before, _ := NewMapper(NewGeometry(800, 400, DefaultMargins(), 5), PriceRangeOf(candles))
	start, end := Point{X: 109, Y: 300}, Point{X: 523, Y: 100}
	trend := TrendLine{
		StartX: start.X, StartY: start.Y, EndX: end.X, EndY: end.Y,
		Start: before.ToData(start), End: before.ToData(end),
	}

	after := NewGeometry(400, 400, DefaultMargins(), 5)
	frame := Frame{
		Candles:     candles,
		Geometry:    after,
		Range:       PriceRangeOf(candles),
		Annotations: []Annotation{trend},
	}
	trendPath := func(s *recordingSurface) []Point {
		i := s.first(func(op surfaceOp) bool { return op.name == "stroke" && op.stroke == theme.Trend })
		require.GreaterOrEqual(t, i, 0)
		return s.ops[i].path
	}

	pixel := newRecordingSurface(400, 400)
	NewRenderer(theme, AnchorPixel, zerolog.Nop()).Render(pixel, frame)
	assert.Equal(t, []Point{start, end}, trendPath(pixel))

	data := newRecordingSurface(400, 400)
	NewRenderer(theme, AnchorData, zerolog.Nop()).Render(data, frame)
	got := trendPath(data)

	// the line follows candle 0 and candle 3 in the narrower layout
	assert.InDelta(t, after.CandleCenter(0), got[0].X, 1e-6)
	assert.InDelta(t, after.CandleCenter(3), got[1].X, 1e-6)
	assert.InDelta(t, 300, got[0].Y, 1e-6)
}
