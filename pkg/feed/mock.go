package feed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/raykavin/chartdesk/pkg/series"
)

// Mock generates a deterministic random walk per symbol. It stands in for a
// real data source in demos and tests and serves placeholder headlines.
type Mock struct {
	// Bars is the number of candles per quote.
	Bars int
	now  func() time.Time
}

// NewMock creates a mock source producing bars candles per quote.
func NewMock(bars int) *Mock {
	return &Mock{Bars: bars, now: time.Now}
}

// Fetch returns the same walk for the same symbol and interval.
func (m *Mock) Fetch(_ context.Context, q Query) (Quote, error) {
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	step, err := ParseInterval(q.Interval)
	if err != nil {
		return Quote{}, err
	}

	symbol := strings.ToUpper(q.Symbol)
	quote := Quote{
		Symbol: symbol,
		Raw:    m.walk(symbol, step),
		News: []News{
			{Title: symbol + " trades in a narrow range", Summary: "Placeholder headline from the mock source."},
		},
	}

	if len(q.Compare) > 0 {
		quote.Compare = make(map[string]Comparison, len(q.Compare))
		for _, other := range q.Compare {
			other = strings.ToUpper(other)
			quote.Compare[other] = NewComparison(m.walk(other, step).Close)
		}
	}

	return quote, nil
}

func (m *Mock) walk(symbol string, step time.Duration) series.Raw {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rnd := rand.New(rand.NewSource(int64(h.Sum64())))

	bars := max(m.Bars, 1)
	end := m.now().UTC().Truncate(step)
	start := end.Add(-time.Duration(bars-1) * step)

	raw := series.Raw{
		Timestamps: make([]string, bars),
		Open:       make([]series.Number, bars),
		High:       make([]series.Number, bars),
		Low:        make([]series.Number, bars),
		Close:      make([]series.Number, bars),
		Volume:     make([]series.Number, bars),
	}

	price := 50 + rnd.Float64()*450
	for i := 0; i < bars; i++ {
		open := price
		closePrice := math.Max(1, open*(1+rnd.NormFloat64()*0.015))
		high := math.Max(open, closePrice) * (1 + rnd.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - rnd.Float64()*0.01)

		raw.Timestamps[i] = start.Add(time.Duration(i) * step).Format(time.RFC3339)
		raw.Open[i] = series.Number(round2(open))
		raw.High[i] = series.Number(round2(high))
		raw.Low[i] = series.Number(round2(low))
		raw.Close[i] = series.Number(round2(closePrice))
		raw.Volume[i] = series.Number(math.Round(1e5 + rnd.Float64()*9e5))

		price = closePrice
	}

	return raw
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
