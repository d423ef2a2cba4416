package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestCandle(t *testing.T) {
	candles := sampleCandles(100, 102, 99, 105, 103)
	g := NewGeometry(800, 400, DefaultMargins(), len(candles))

	hit, ok := NearestCandle(g.CandleCenter(2), g, candles)
	require.True(t, ok)
	assert.Equal(t, 2, hit.Index)
	assert.Equal(t, 99.0, hit.Candle.Close)

	t.Run("slack", func(t *testing.T) {
		reach := g.CandleWidth/2 + hitSlack

		_, ok := NearestCandle(g.CandleCenter(0)+reach-0.1, g, candles)
		assert.True(t, ok)

		_, ok = NearestCandle(g.CandleCenter(0)+reach+0.1, g, candles)
		assert.False(t, ok)
	})

	t.Run("margins never hit", func(t *testing.T) {
		for _, x := range []float64{-10, 0, 39.9, 730.1, 790, 1000} {
			_, ok := NearestCandle(x, g, candles)
			assert.False(t, ok, "x=%v", x)
		}
	})

	t.Run("no candles", func(t *testing.T) {
		_, ok := NearestCandle(100, NewGeometry(800, 400, DefaultMargins(), 0), nil)
		assert.False(t, ok)
	})

	t.Run("dense chart picks leftmost match", func(t *testing.T) {
		closes := make([]float64, 100)
		for i := range closes {
			closes[i] = 100 + float64(i%7)
		}
		dense := sampleCandles(closes...)
		g := NewGeometry(800, 400, DefaultMargins(), len(dense))

		hit, ok := NearestCandle(g.CandleCenter(50), g, dense)
		require.True(t, ok)
		assert.Equal(t, 49, hit.Index)
	})
}

func TestHitChange(t *testing.T) {
	candles := sampleCandles(100, 102, 99, 105, 103)
	g := NewGeometry(800, 400, DefaultMargins(), len(candles))
	theme := DefaultTheme()

	hit, ok := NearestCandle(g.CandleCenter(3), g, candles)
	require.True(t, ok)

	abs, pct := hit.Change()
	assert.InDelta(t, 6.0, abs, 1e-9)
	assert.InDelta(t, 6.0/99*100, pct, 1e-9)

	lines := TooltipLines(hit, theme)
	assert.Equal(t, "Change: +6.00 (+6.06%)", lines[len(lines)-1])
	assert.Equal(t, "Close: ₹105.00", lines[4])
	assert.Equal(t, "Mon Mar 4 2024", lines[0])

	first, ok := NearestCandle(g.CandleCenter(0), g, candles)
	require.True(t, ok)
	require.False(t, first.HasPrior)

	abs, pct = first.Change()
	assert.Zero(t, abs)
	assert.Zero(t, pct)
	assert.Equal(t, "Change: +0.00 (+0.00%)", TooltipLines(first, theme)[5])
}

func TestTooltipOrigin(t *testing.T) {
	g := NewGeometry(800, 400, DefaultMargins(), 5)

	assert.Equal(t, Point{X: 115, Y: 115}, TooltipOrigin(Point{X: 100, Y: 100}, g))

	// right edge flips left
	o := TooltipOrigin(Point{X: 700, Y: 100}, g)
	assert.Equal(t, 700-tooltipOffset-tooltipWidth, o.X)

	// bottom edge flips up
	o = TooltipOrigin(Point{X: 100, Y: 350}, g)
	assert.Equal(t, 350-tooltipOffset-tooltipHeight, o.Y)

	// never leaves a tiny canvas
	small := NewGeometry(150, 100, DefaultMargins(), 5)
	o = TooltipOrigin(Point{X: 75, Y: 50}, small)
	assert.GreaterOrEqual(t, o.X, 0.0)
	assert.GreaterOrEqual(t, o.Y, 0.0)
}
