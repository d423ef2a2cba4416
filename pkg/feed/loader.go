package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/series"
)

var ErrUnknownSource = errors.New("unknown data source")

// Series is a normalized quote, ready for a chart view.
type Series struct {
	Query   Query                 `json:"query"`
	Symbol  string                `json:"symbol"`
	Candles []core.Candle         `json:"candles"`
	Report  series.Report         `json:"report"`
	News    []News                `json:"news,omitempty"`
	Compare map[string]Comparison `json:"compare,omitempty"`
}

// Loader fetches quotes and normalizes them.
type Loader struct {
	provider   Provider
	normalizer *series.Normalizer
	log        logger.Logger
}

// NewLoader creates a loader over provider.
func NewLoader(provider Provider, log logger.Logger) *Loader {
	return &Loader{provider: provider, normalizer: series.NewNormalizer(log), log: log}
}

// Load fetches q and drops malformed rows. A quote with no usable row fails with ErrNoData.
func (l *Loader) Load(ctx context.Context, q Query) (Series, error) {
	quote, err := l.provider.Fetch(ctx, q)
	if err != nil {
		return Series{}, err
	}

	result, err := l.normalizer.Normalize(quote.Raw)
	if err != nil {
		return Series{}, fmt.Errorf("normalize %s: %w", quote.Symbol, err)
	}
	if len(result.Candles) == 0 {
		return Series{}, fmt.Errorf("%w: %s has no usable rows", ErrNoData, quote.Symbol)
	}

	out := Series{
		Query:   q,
		Symbol:  quote.Symbol,
		Candles: result.Candles,
		Report:  result.Report,
		News:    quote.News,
	}

	out.Compare = l.compare(ctx, q, quote.Compare)
	return out, nil
}

// compare keeps the usable comparisons of the quote and fetches the requested
// symbols the provider did not answer for. Rejected symbols are logged and skipped.
func (l *Loader) compare(ctx context.Context, q Query, given map[string]Comparison) map[string]Comparison {
	out := make(map[string]Comparison)
	answered := make(map[string]bool)
	for symbol, c := range given {
		symbol = strings.ToUpper(symbol)
		answered[symbol] = true
		if err := c.check(); err != nil {
			l.log.WithError(err).WithField("symbol", symbol).Warn("comparison skipped")
			continue
		}
		c.fill()
		out[symbol] = c
	}

	for _, symbol := range q.Compare {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || answered[symbol] {
			continue
		}
		answered[symbol] = true

		quote, err := l.provider.Fetch(ctx, Query{Symbol: symbol, Period: q.Period, Interval: q.Interval})
		if err == nil {
			c := NewComparison(quote.Raw.Close)
			if err = c.check(); err == nil {
				out[symbol] = c
				continue
			}
		}
		l.log.WithError(err).WithField("symbol", symbol).Warn("comparison skipped")
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Config selects and tunes a data source.
type Config struct {
	Source     string
	ServiceURL string
	Timeout    time.Duration
	Retries    int
	CSVDir     string
	MockBars   int
	CachePath  string
	CacheTTL   time.Duration
}

// Open builds the provider named by cfg.Source, wrapped in a cache when
// CacheTTL is set. The returned closer releases the cache.
func Open(cfg Config, log logger.Logger) (Provider, func() error, error) {
	var provider Provider
	switch strings.ToLower(cfg.Source) {
	case "service":
		provider = NewService(cfg.ServiceURL, cfg.Timeout, log, WithRetries(cfg.Retries))
	case "binance":
		provider = NewBinance(log)
	case "csv":
		provider = NewCSV(cfg.CSVDir, log)
	case "mock", "":
		provider = NewMock(cfg.MockBars)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}

	noop := func() error { return nil }
	if cfg.CacheTTL <= 0 {
		return provider, noop, nil
	}

	path := cfg.CachePath
	if path == "" {
		path = ":memory:"
	}
	cache, err := NewCache(path, cfg.CacheTTL, provider, log)
	if err != nil {
		return nil, nil, err
	}
	return cache, cache.Close, nil
}
