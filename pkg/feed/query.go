// Package feed fetches OHLC series for the chart from the supported data sources.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/chartdesk/pkg/series"
)

var (
	ErrNoData          = errors.New("no data for query")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Periods lists the accepted look-back periods.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Intervals lists the accepted candle intervals.
var Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}

// Query selects one series.
type Query struct {
	Symbol   string   `json:"symbol"`
	Period   string   `json:"period"`
	Interval string   `json:"interval"`
	Compare  []string `json:"compareSymbols,omitempty"`
}

// Validate checks the query against the accepted periods and intervals.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Symbol) == "" {
		return ErrInvalidSymbol
	}
	if !slices.Contains(Periods, q.Period) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, q.Period)
	}
	if !slices.Contains(Intervals, q.Interval) {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, q.Interval)
	}
	return nil
}

// Key identifies the query in caches.
func (q Query) Key() string {
	key := fmt.Sprintf("%s:%s:%s", strings.ToUpper(q.Symbol), q.Period, q.Interval)
	if len(q.Compare) > 0 {
		key += ":" + strings.ToUpper(strings.Join(q.Compare, ","))
	}
	return key
}

// News is one headline attached to a quote.
type News struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// UnmarshalJSON accepts both {"title","summary"} objects and [title, summary] pairs.
func (n *News) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) > 0 {
			n.Title = pair[0]
		}
		if len(pair) > 1 {
			n.Summary = pair[1]
		}
		return nil
	}

	type plain News
	return json.Unmarshal(data, (*plain)(n))
}

// Comparison is the close series of a symbol shown alongside the main quote.
// Error is set by the data service when the symbol could not be fetched.
type Comparison struct {
	Close         []series.Number `json:"close"`
	LastPrice     series.Number   `json:"lastPrice"`
	Change        series.Number   `json:"change"`
	PercentChange series.Number   `json:"percentChange"`
	Error         string          `json:"error,omitempty"`
}

// NewComparison builds a comparison from closes, oldest first.
func NewComparison(closes []series.Number) Comparison {
	c := Comparison{Close: closes, LastPrice: series.NaN(), Change: series.NaN(), PercentChange: series.NaN()}
	c.fill()
	return c
}

// fill derives the missing figures from the last two valid closes.
func (c *Comparison) fill() {
	var valid []float64
	for _, v := range c.Close {
		if v.Valid() {
			valid = append(valid, v.Float())
		}
	}
	n := len(valid)
	if n == 0 {
		return
	}
	if !c.LastPrice.Valid() {
		c.LastPrice = series.Number(valid[n-1])
	}
	if n < 2 {
		return
	}
	prev := valid[n-2]
	if !c.Change.Valid() {
		c.Change = series.Number(valid[n-1] - prev)
	}
	if !c.PercentChange.Valid() && prev != 0 {
		c.PercentChange = series.Number((valid[n-1] - prev) / prev * 100)
	}
}

// check reports why the comparison cannot be shown.
func (c Comparison) check() error {
	if c.Error != "" {
		return errors.New(c.Error)
	}
	for _, v := range c.Close {
		if v.Valid() {
			return nil
		}
	}
	return ErrNoData
}

// Quote is the raw answer of a provider.
type Quote struct {
	Symbol  string                `json:"symbol"`
	Raw     series.Raw            `json:"raw"`
	News    []News                `json:"news,omitempty"`
	Compare map[string]Comparison `json:"compare,omitempty"`
}

// Provider fetches raw quotes.
type Provider interface {
	Fetch(ctx context.Context, q Query) (Quote, error)
}

// ParseInterval converts an interval such as "15m", "1wk" or "3mo" to a duration.
// Months count as 30 days.
func ParseInterval(interval string) (time.Duration, error) {
	value := interval
	switch {
	case strings.HasSuffix(interval, "wk"):
		value = strings.TrimSuffix(interval, "k")
	case strings.HasSuffix(interval, "mo"):
		n, err := strconv.Atoi(strings.TrimSuffix(interval, "mo"))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
		}
		value = strconv.Itoa(n*30) + "d"
	}

	d, err := str2duration.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return d, nil
}

// PeriodStart returns the first instant covered by period, counted back from now.
// "max" returns the zero time.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "max":
		return time.Time{}, nil
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}

	var (
		n    int
		unit string
	)
	for i, r := range period {
		if r < '0' || r > '9' {
			n, _ = strconv.Atoi(period[:i])
			unit = period[i:]
			break
		}
	}
	if n <= 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "y":
		return now.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}
