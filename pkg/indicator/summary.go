// Package indicator summarizes a candle series for the inspect command and
// the session summary endpoint. The figures are informational only.
package indicator

import (
	"encoding/json"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/series"
)

// Periods of the summarized indicators.
const (
	ShortPeriod   = 20
	LongPeriod    = 50
	RSIPeriod     = 14
	ATRPeriod     = 14
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
	BandDeviation = 2.0
)

// Summary holds the latest value of each indicator. A value is NaN when the
// series is too short to compute it.
type Summary struct {
	Bars      int     `json:"bars"`
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`

	SMAShort   float64 `json:"smaShort"`
	SMALong    float64 `json:"smaLong"`
	EMAShort   float64 `json:"emaShort"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
	MACDHist   float64 `json:"macdHist"`
	ATR        float64 `json:"atr"`
	BandUpper  float64 `json:"bandUpper"`
	BandLower  float64 `json:"bandLower"`

	ReturnMean   float64           `json:"returnMean"`
	ReturnStdDev float64           `json:"returnStdDev"`
	Volatility   BootstrapInterval `json:"volatility"`
}

// Summarize computes the summary of candles, oldest first.
func Summarize(candles []core.Candle) Summary {
	nan := math.NaN()
	s := Summary{
		Bars: len(candles), Last: nan, Change: nan, ChangePct: nan, High: nan, Low: nan,
		SMAShort: nan, SMALong: nan, EMAShort: nan, RSI: nan,
		MACD: nan, MACDSignal: nan, MACDHist: nan, ATR: nan,
		BandUpper: nan, BandLower: nan, ReturnMean: nan, ReturnStdDev: nan,
		Volatility: BootstrapInterval{Lower: nan, Upper: nan, StdDev: nan, Mean: nan},
	}
	if len(candles) == 0 {
		return s
	}

	cols := core.ToColumns(candles)
	closes := cols.Close.Values()

	s.Last = cols.Close.Last(0)
	_, s.High, _ = cols.High.Bounds()
	s.Low, _, _ = cols.Low.Bounds()
	if len(closes) > 1 {
		prev := cols.Close.Last(1)
		s.Change = s.Last - prev
		if prev != 0 {
			s.ChangePct = s.Change / prev * 100
		}
	}

	if len(closes) >= ShortPeriod {
		s.SMAShort = last(talib.Sma(closes, ShortPeriod))
		s.EMAShort = last(talib.Ema(closes, ShortPeriod))
		upper, _, lower := talib.BBands(closes, ShortPeriod, BandDeviation, BandDeviation, talib.SMA)
		s.BandUpper, s.BandLower = last(upper), last(lower)
	}
	if len(closes) >= LongPeriod {
		s.SMALong = last(talib.Sma(closes, LongPeriod))
	}
	if len(closes) > RSIPeriod {
		s.RSI = last(talib.Rsi(closes, RSIPeriod))
	}
	if len(closes) > ATRPeriod {
		s.ATR = last(talib.Atr(cols.High.Values(), cols.Low.Values(), closes, ATRPeriod))
	}
	if len(closes) >= MACDSlow+MACDSignal {
		macd, signal, hist := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
		s.MACD, s.MACDSignal, s.MACDHist = last(macd), last(signal), last(hist)
	}

	if returns := Returns(closes); len(returns) > 1 {
		s.ReturnMean, s.ReturnStdDev = stat.MeanStdDev(returns, nil)
		s.Volatility = Bootstrap(returns, func(sample []float64) float64 {
			return stat.StdDev(sample, nil)
		}, 200, 0.95)
	}

	return s
}

// Returns computes simple close-to-close returns, skipping zero prices.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

// Trend labels the summary by price against the short average.
func (s Summary) Trend() string {
	switch {
	case math.IsNaN(s.SMAShort):
		return "n/a"
	case s.Last > s.SMAShort:
		return "up"
	case s.Last < s.SMAShort:
		return "down"
	}
	return "flat"
}

func last(values []float64) float64 {
	v, ok := lo.Last(values)
	if !ok {
		return math.NaN()
	}
	return v
}

// Figures is the wire form of a Summary. Missing values encode as null.
type Figures struct {
	Bars       int           `json:"bars"`
	Last       series.Number `json:"last"`
	Change     series.Number `json:"change"`
	ChangePct  series.Number `json:"changePct"`
	High       series.Number `json:"high"`
	Low        series.Number `json:"low"`
	SMAShort   series.Number `json:"smaShort"`
	SMALong    series.Number `json:"smaLong"`
	EMAShort   series.Number `json:"emaShort"`
	RSI        series.Number `json:"rsi"`
	MACD       series.Number `json:"macd"`
	MACDSignal series.Number `json:"macdSignal"`
	MACDHist   series.Number `json:"macdHist"`
	ATR        series.Number `json:"atr"`
	BandUpper  series.Number `json:"bandUpper"`
	BandLower  series.Number `json:"bandLower"`

	ReturnMean   series.Number   `json:"returnMean"`
	ReturnStdDev series.Number   `json:"returnStdDev"`
	Trend        string          `json:"trend"`
	Volatility   IntervalFigures `json:"volatility"`
}

// IntervalFigures is the wire form of a BootstrapInterval.
type IntervalFigures struct {
	Lower  series.Number `json:"lower"`
	Upper  series.Number `json:"upper"`
	StdDev series.Number `json:"stdDev"`
	Mean   series.Number `json:"mean"`
}

// Figures converts the summary to its wire form.
func (s Summary) Figures() Figures {
	n := func(v float64) series.Number { return series.Number(v) }
	return Figures{
		Bars:         s.Bars,
		Last:         n(s.Last),
		Change:       n(s.Change),
		ChangePct:    n(s.ChangePct),
		High:         n(s.High),
		Low:          n(s.Low),
		SMAShort:     n(s.SMAShort),
		SMALong:      n(s.SMALong),
		EMAShort:     n(s.EMAShort),
		RSI:          n(s.RSI),
		MACD:         n(s.MACD),
		MACDSignal:   n(s.MACDSignal),
		MACDHist:     n(s.MACDHist),
		ATR:          n(s.ATR),
		BandUpper:    n(s.BandUpper),
		BandLower:    n(s.BandLower),
		ReturnMean:   n(s.ReturnMean),
		ReturnStdDev: n(s.ReturnStdDev),
		Trend:        s.Trend(),
		Volatility: IntervalFigures{
			Lower:  n(s.Volatility.Lower),
			Upper:  n(s.Volatility.Upper),
			StdDev: n(s.Volatility.StdDev),
			Mean:   n(s.Volatility.Mean),
		},
	}
}

// MarshalJSON writes NaN values as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Figures())
}
