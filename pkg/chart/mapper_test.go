package chart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry(t *testing.T) {
	g := NewGeometry(800, 400, DefaultMargins(), 10)

	assert.Equal(t, 690.0, g.DrawingWidth())
	assert.Equal(t, 360.0, g.DrawingHeight())
	assert.InDelta(t, 69.0, g.CandleSpacing, 1e-9)
	assert.Equal(t, MaxCandleWidth, g.CandleWidth)
	assert.InDelta(t, 74.5, g.CandleCenter(0), 1e-9)
	assert.True(t, g.Valid())

	dense := NewGeometry(800, 400, DefaultMargins(), 200)
	assert.InDelta(t, 3.45*0.8, dense.CandleWidth, 1e-9)

	t.Run("invalid", func(t *testing.T) {
		assert.False(t, NewGeometry(800, 400, DefaultMargins(), 0).Valid())
		assert.False(t, NewGeometry(100, 400, DefaultMargins(), 5).Valid())
		assert.False(t, NewGeometry(800, 40, DefaultMargins(), 5).Valid())
	})

	t.Run("clamp", func(t *testing.T) {
		assert.Equal(t, Point{X: 800, Y: 0}, g.Clamp(Point{X: 900, Y: -4}))
		assert.Equal(t, Point{X: 12, Y: 30}, g.Clamp(Point{X: 12, Y: 30}))
	})
}

func TestPriceRangeOf(t *testing.T) {
	candles := sampleCandles(100, 110)

	r := PriceRangeOf(candles)
	// lows 97, highs 112, span 15
	assert.InDelta(t, 97-1.5, r.Min, 1e-9)
	assert.InDelta(t, 112+1.5, r.Max, 1e-9)

	t.Run("flat series", func(t *testing.T) {
		flat := sampleCandles(50)
		flat[0].Open, flat[0].High, flat[0].Low = 50, 50, 50

		r := PriceRangeOf(flat)
		assert.Equal(t, PriceRange{Min: 49, Max: 51}, r)
	})

	t.Run("empty", func(t *testing.T) {
		r := PriceRangeOf(nil)
		assert.Greater(t, r.Span(), 0.0)
	})
}

func TestPriceMapping(t *testing.T) {
	r := PriceRange{Min: 90, Max: 110}

	assert.Equal(t, 110.0, YToPrice(20, r, 20, 360))
	assert.Equal(t, 90.0, YToPrice(380, r, 20, 360))
	assert.Equal(t, 20.0, PriceToY(110, r, 20, 360))
	assert.Equal(t, 200.0, PriceToY(100, r, 20, 360))

	// price falls as y grows
	assert.Greater(t, YToPrice(100, r, 20, 360), YToPrice(101, r, 20, 360))

	t.Run("round trip", func(t *testing.T) {
		ranges := []PriceRange{r, {Min: 0.0001, Max: 0.0003}, {Min: -50, Max: 25000}}
		for _, r := range ranges {
			for y := -50.0; y <= 450; y += 7.3 {
				got := PriceToY(YToPrice(y, r, 20, 360), r, 20, 360)
				require.InDelta(t, y, got, 1e-6)
			}
		}
	})

	t.Run("zero height", func(t *testing.T) {
		assert.True(t, math.IsNaN(YToPrice(20, r, 20, 0)))
	})
}

func TestIndexMapping(t *testing.T) {
	g := NewGeometry(800, 400, DefaultMargins(), 5)

	for i := 0; i < 5; i++ {
		assert.InDelta(t, g.CandleCenter(i), IndexToX(float64(i), g), 1e-9)
	}
	for x := 40.0; x <= 730; x += 13 {
		assert.InDelta(t, x, IndexToX(XToIndex(x, g), g), 1e-9)
	}

	m, ok := NewMapper(g, PriceRange{Min: 90, Max: 110})
	require.True(t, ok)

	p := Point{X: 321, Y: 123}
	back := m.ToPixel(m.ToData(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}
