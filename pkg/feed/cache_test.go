package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/chartdesk/pkg/logger/zerolog"
	"github.com/raykavin/chartdesk/pkg/series"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Fetch(_ context.Context, q Query) (Quote, error) {
	p.calls++
	if p.err != nil {
		return Quote{}, p.err
	}
	return Quote{
		Symbol: q.Symbol,
		Raw: series.Raw{
			Timestamps: []string{"2024-03-01"},
			Open:       series.Numbers(1),
			High:       series.Numbers(2),
			Low:        []series.Number{series.NaN()},
			Close:      series.Numbers(1.5),
		},
	}, nil
}

func TestCache(t *testing.T) {
	next := &countingProvider{}
	cache, err := NewCache(":memory:", time.Minute, next, zerolog.Nop())
	require.NoError(t, err)
	defer cache.Close()

	q := Query{Symbol: "TCS", Period: "1mo", Interval: "1d"}

	first, err := cache.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := cache.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Symbol, second.Symbol)
	assert.False(t, second.Raw.Low[0].Valid(), "NaN survives the cache round trip")

	require.NoError(t, cache.Invalidate(q))
	_, err = cache.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	require.NoError(t, cache.Invalidate(Query{Symbol: "never"}))
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	next := &countingProvider{err: errors.New("boom")}
	cache, err := NewCache(":memory:", time.Minute, next, zerolog.Nop())
	require.NoError(t, err)
	defer cache.Close()

	q := Query{Symbol: "TCS", Period: "1mo", Interval: "1d"}
	_, err = cache.Fetch(context.Background(), q)
	require.Error(t, err)
	_, err = cache.Fetch(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestOpen(t *testing.T) {
	p, closer, err := Open(Config{Source: "mock", MockBars: 10}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, closer())
	assert.IsType(t, &Mock{}, p)

	p, closer, err = Open(Config{Source: "binance", CacheTTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Cache{}, p)
	require.NoError(t, closer())

	_, _, err = Open(Config{Source: "ftp"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestMock(t *testing.T) {
	m := NewMock(50)
	q := Query{Symbol: "demo", Period: "1y", Interval: "1d", Compare: []string{"other"}}

	a, err := m.Fetch(context.Background(), q)
	require.NoError(t, err)
	b, err := m.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, a.Raw.Close, b.Raw.Close, "same symbol, same walk")
	assert.Contains(t, a.Compare, "OTHER")
	assert.NotEmpty(t, a.News)

	s, err := NewLoader(m, zerolog.Nop()).Load(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, s.Candles, 50)
	assert.Zero(t, s.Report.DroppedTotal())
	require.Contains(t, s.Compare, "OTHER")
	assert.Len(t, s.Compare["OTHER"].Close, 50)
	assert.True(t, s.Compare["OTHER"].LastPrice.Valid())
}

func TestLoaderFetchesMissingComparisons(t *testing.T) {
	loader := NewLoader(comparisonless{NewMock(20)}, zerolog.Nop())

	s, err := loader.Load(context.Background(), Query{
		Symbol: "demo", Period: "1mo", Interval: "1d", Compare: []string{"other", " ", "demo2"},
	})
	require.NoError(t, err)
	require.Len(t, s.Compare, 2)
	assert.Len(t, s.Compare["OTHER"].Close, 20)
	assert.True(t, s.Compare["DEMO2"].Change.Valid())

	s, err = NewLoader(comparisonless{failing{}}, zerolog.Nop()).Load(context.Background(), Query{
		Symbol: "demo", Period: "1mo", Interval: "1d", Compare: []string{"other"},
	})
	require.NoError(t, err)
	assert.Nil(t, s.Compare)
}

// comparisonless answers like the csv and binance sources: no comparison data.
type comparisonless struct{ Provider }

func (c comparisonless) Fetch(ctx context.Context, q Query) (Quote, error) {
	quote, err := c.Provider.Fetch(ctx, q)
	quote.Compare = nil
	return quote, err
}

// failing serves the main symbol only.
type failing struct{}

func (failing) Fetch(ctx context.Context, q Query) (Quote, error) {
	if q.Symbol != "demo" {
		return Quote{}, ErrNoData
	}
	return NewMock(10).Fetch(ctx, q)
}
