package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/series"
)

const binanceKlineLimit = 1000

var binanceIntervals = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"60m": "1h",
	"1h":  "1h",
	"1d":  "1d",
	"1wk": "1w",
	"1mo": "1M",
}

// Binance reads spot klines from the public Binance API.
type Binance struct {
	log    logger.Logger
	client *binance.Client
	now    func() time.Time
}

// NewBinance creates an unauthenticated kline client.
func NewBinance(log logger.Logger) *Binance {
	return &Binance{
		log:    log,
		client: binance.NewClient("", ""),
		now:    time.Now,
	}
}

// Fetch loads up to 1000 klines covering the query period.
func (b *Binance) Fetch(ctx context.Context, q Query) (Quote, error) {
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	interval, ok := binanceIntervals[q.Interval]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q not offered by binance", ErrInvalidInterval, q.Interval)
	}

	start, err := PeriodStart(q.Period, b.now())
	if err != nil {
		return Quote{}, err
	}

	symbol := strings.ToUpper(q.Symbol)
	service := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(binanceKlineLimit)
	if !start.IsZero() {
		service = service.StartTime(start.UnixMilli())
	}

	klines, err := service.Do(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	if len(klines) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	b.log.WithFields(map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"klines":   len(klines),
	}).Debug("binance klines loaded")

	return Quote{Symbol: symbol, Raw: klinesToRaw(klines)}, nil
}

func klinesToRaw(klines []*binance.Kline) series.Raw {
	raw := series.Raw{
		Timestamps: make([]string, len(klines)),
		Open:       make([]series.Number, len(klines)),
		High:       make([]series.Number, len(klines)),
		Low:        make([]series.Number, len(klines)),
		Close:      make([]series.Number, len(klines)),
		Volume:     make([]series.Number, len(klines)),
	}

	for i, k := range klines {
		raw.Timestamps[i] = time.UnixMilli(k.OpenTime).UTC().Format(time.RFC3339)
		raw.Open[i] = series.ParseNumber(k.Open)
		raw.High[i] = series.ParseNumber(k.High)
		raw.Low[i] = series.ParseNumber(k.Low)
		raw.Close[i] = series.ParseNumber(k.Close)
		raw.Volume[i] = series.ParseNumber(k.Volume)
	}

	return raw
}
