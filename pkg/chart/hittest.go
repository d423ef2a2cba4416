package chart

import (
	"math"

	"github.com/raykavin/chartdesk/pkg/core"
)

// hitSlack widens each candle's hit zone beyond its body, in pixels.
const hitSlack = 5.0

// Hit is the candle found under the pointer.
type Hit struct {
	Index  int
	Candle core.Candle
	// Prior is the previous candle's close, valid when HasPrior is set.
	Prior    float64
	HasPrior bool
}

// Change returns the absolute and percent change against the prior close.
// Both are zero for the first candle.
func (h Hit) Change() (abs, pct float64) {
	if !h.HasPrior || h.Prior == 0 {
		return 0, 0
	}
	abs = h.Candle.Close - h.Prior
	return abs, abs / h.Prior * 100
}

// NearestCandle returns the candle whose center is within candleWidth/2+5
// pixels of x. Pointers over the margins never hit.
func NearestCandle(x float64, g Geometry, candles []core.Candle) (Hit, bool) {
	if len(candles) == 0 || !g.Valid() {
		return Hit{}, false
	}
	if x < g.PlotLeft() || x > g.PlotRight() {
		return Hit{}, false
	}

	// Centers are evenly spaced, so only indexes within reach of x need a look.
	// Zones overlap on dense charts; the leftmost match wins.
	reach := g.CandleWidth/2 + hitSlack
	first := max(0, int(math.Floor(XToIndex(x-reach, g))))
	last := min(len(candles)-1, int(math.Ceil(XToIndex(x+reach, g))))

	i := -1
	for j := first; j <= last; j++ {
		if math.Abs(x-g.CandleCenter(j)) <= reach {
			i = j
			break
		}
	}
	if i < 0 {
		return Hit{}, false
	}

	hit := Hit{Index: i, Candle: candles[i]}
	if i > 0 {
		hit.Prior = candles[i-1].Close
		hit.HasPrior = true
	}
	return hit, true
}
