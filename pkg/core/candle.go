package core

import (
	"math"
	"time"
)

// Candle is one OHLC bar. Candles are built once per fetch and never mutated.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Bullish reports whether the bar closed at or above its open.
func (c Candle) Bullish() bool { return c.Close >= c.Open }

// BodyTop returns the higher of open and close.
func (c Candle) BodyTop() float64 { return math.Max(c.Open, c.Close) }

// BodyBottom returns the lower of open and close.
func (c Candle) BodyBottom() float64 { return math.Min(c.Open, c.Close) }

// Consistent reports whether high and low bound the body.
func (c Candle) Consistent() bool {
	return c.Low <= c.BodyBottom() && c.High >= c.BodyTop() && c.Low <= c.High
}

// Columns splits candles into parallel series, the shape indicator libraries expect.
type Columns struct {
	Time   []time.Time
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Close  Series[float64]
	Volume Series[float64]
}

// ToColumns converts a candle sequence to Columns.
func ToColumns(candles []Candle) Columns {
	cols := Columns{
		Time:   make([]time.Time, len(candles)),
		Open:   make(Series[float64], len(candles)),
		High:   make(Series[float64], len(candles)),
		Low:    make(Series[float64], len(candles)),
		Close:  make(Series[float64], len(candles)),
		Volume: make(Series[float64], len(candles)),
	}

	for i, c := range candles {
		cols.Time[i] = c.Time
		cols.Open[i] = c.Open
		cols.High[i] = c.High
		cols.Low[i] = c.Low
		cols.Close[i] = c.Close
		cols.Volume[i] = c.Volume
	}

	return cols
}
