package chart

import (
	"fmt"
	"math"
	"time"
)

const (
	tooltipWidth   = 180.0
	tooltipHeight  = 120.0
	tooltipOffset  = 15.0
	tooltipPadding = 10.0
	tooltipLeading = 18.0
)

// TooltipOrigin returns the top-left corner of the tooltip box for a pointer.
// The box sits below-right of the pointer, flips left or up at the canvas
// edges and never leaves the canvas.
func TooltipOrigin(pointer Point, g Geometry) Point {
	x := pointer.X + tooltipOffset
	if x+tooltipWidth > g.CanvasWidth {
		x = pointer.X - tooltipOffset - tooltipWidth
	}

	y := pointer.Y + tooltipOffset
	if y+tooltipHeight > g.CanvasHeight {
		y = pointer.Y - tooltipOffset - tooltipHeight
	}

	return Point{
		X: math.Max(0, math.Min(x, g.CanvasWidth-tooltipWidth)),
		Y: math.Max(0, math.Min(y, g.CanvasHeight-tooltipHeight)),
	}
}

// TooltipLines formats the tooltip rows for a hit: the date, O/H/L/C and
// the change against the prior close.
func TooltipLines(hit Hit, theme Theme) []string {
	c := hit.Candle
	abs, pct := hit.Change()

	return []string{
		formatTooltipTime(c.Time, theme),
		"Open:  " + formatPrice(theme.Currency, c.Open),
		"High:  " + formatPrice(theme.Currency, c.High),
		"Low:   " + formatPrice(theme.Currency, c.Low),
		"Close: " + formatPrice(theme.Currency, c.Close),
		fmt.Sprintf("Change: %+.2f (%+.2f%%)", abs, pct),
	}
}

func formatTooltipTime(t time.Time, theme Theme) string {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 {
		return t.Format(theme.TooltipLayout)
	}
	return t.Format(theme.TooltipIntraday)
}

func formatPrice(currency string, price float64) string {
	return fmt.Sprintf("%s%.2f", currency, price)
}
