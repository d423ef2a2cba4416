package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/chartdesk/pkg/logger/zerolog"
)

const stockPayload = `{
	"symbol": "TCS.NS",
	"timestamps": ["2024-03-01 09:15:00", "2024-03-01 09:20:00", "2024-03-01 09:25:00"],
	"open": [100, 101, null],
	"high": [102, 103, 104],
	"low": [99, 100, 101],
	"close": [101, 102, 103],
	"volume": [1000, 1200, 900],
	"news": [["Results beat estimates", "Quarterly profit rose."]]
}`

func newTestService(url string) *Service {
	return NewService(url, time.Second, zerolog.Nop(), WithBackoff(time.Millisecond, 5*time.Millisecond))
}

func TestServiceFetch(t *testing.T) {
	var got Query
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, stockDataPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stockPayload))
	}))
	defer server.Close()

	q := Query{Symbol: "TCS.NS", Period: "1d", Interval: "5m"}
	quote, err := newTestService(server.URL).Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, q, got)
	assert.Equal(t, "TCS.NS", quote.Symbol)
	require.Len(t, quote.Raw.Timestamps, 3)
	assert.False(t, quote.Raw.Open[2].Valid(), "null decodes as NaN")
	assert.Equal(t, []News{{Title: "Results beat estimates", Summary: "Quarterly profit rose."}}, quote.News)

	t.Run("loader drops the null row", func(t *testing.T) {
		s, err := NewLoader(newTestService(server.URL), zerolog.Nop()).Load(context.Background(), q)
		require.NoError(t, err)
		assert.Len(t, s.Candles, 2)
		assert.Equal(t, 1, s.Report.DroppedTotal())
	})
}

const comparePayload = `{
	"symbol": "TCS.NS",
	"timestamps": ["2024-03-01", "2024-03-04"],
	"open": [100, 101],
	"high": [102, 103],
	"low": [99, 100],
	"close": [101, 102],
	"compareData": {
		"INFY.NS": {"close": [50, 51], "lastPrice": 51, "change": 1, "percentChange": 2},
		"WIPRO.NS": {"close": [20, null, 22], "lastPrice": null, "change": null, "percentChange": null},
		"BAD.NS": {"error": "No data found"}
	}
}`

func TestServiceComparisons(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(comparePayload))
	}))
	defer server.Close()

	q := Query{Symbol: "TCS.NS", Period: "5d", Interval: "1d", Compare: []string{"INFY.NS", "WIPRO.NS", "BAD.NS"}}
	s, err := NewLoader(newTestService(server.URL), zerolog.Nop()).Load(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, s.Compare, 2)
	assert.NotContains(t, s.Compare, "BAD.NS")

	infy := s.Compare["INFY.NS"]
	assert.Len(t, infy.Close, 2)
	assert.Equal(t, 51.0, infy.LastPrice.Float())
	assert.Equal(t, 2.0, infy.PercentChange.Float())

	wipro := s.Compare["WIPRO.NS"]
	assert.Equal(t, 22.0, wipro.LastPrice.Float(), "figures derive from the last valid closes")
	assert.Equal(t, 2.0, wipro.Change.Float())
	assert.InDelta(t, 10.0, wipro.PercentChange.Float(), 1e-9)
}

func TestServiceRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream down"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stockPayload))
	}))
	defer server.Close()

	_, err := newTestService(server.URL).Fetch(context.Background(), Query{Symbol: "TCS.NS", Period: "1d", Interval: "5m"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestServiceErrors(t *testing.T) {
	var status, calls atomic.Int32
	status.Store(http.StatusNotFound)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":"No data found for symbol"}`))
	}))
	defer server.Close()

	q := Query{Symbol: "NOPE", Period: "1d", Interval: "5m"}
	svc := newTestService(server.URL)

	_, err := svc.Fetch(context.Background(), q)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, int32(1), calls.Load(), "not found is not retried")

	status.Store(http.StatusBadRequest)
	_, err = svc.Fetch(context.Background(), q)
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "No data found for symbol", serr.Message)

	status.Store(http.StatusInternalServerError)
	calls.Store(0)
	_, err = svc.Fetch(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load(), "one call plus three retries")

	_, err = svc.Fetch(context.Background(), Query{Symbol: "X", Period: "bad", Interval: "5m"})
	require.ErrorIs(t, err, ErrInvalidPeriod)
}
