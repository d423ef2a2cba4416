package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValidate(t *testing.T) {
	require.NoError(t, Query{Symbol: "RELIANCE.NS", Period: "1mo", Interval: "1d"}.Validate())

	err := Query{Period: "1mo", Interval: "1d"}.Validate()
	require.ErrorIs(t, err, ErrInvalidSymbol)

	err = Query{Symbol: "X", Period: "2mo", Interval: "1d"}.Validate()
	require.ErrorIs(t, err, ErrInvalidPeriod)

	err = Query{Symbol: "X", Period: "1y", Interval: "4h"}.Validate()
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestQueryKey(t *testing.T) {
	a := Query{Symbol: "tcs", Period: "1y", Interval: "1d"}
	b := Query{Symbol: "TCS", Period: "1y", Interval: "1d"}
	assert.Equal(t, a.Key(), b.Key())

	b.Compare = []string{"infy"}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestParseInterval(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"90m": 90 * time.Minute,
		"1h":  time.Hour,
		"5d":  5 * 24 * time.Hour,
		"1wk": 7 * 24 * time.Hour,
		"1mo": 30 * 24 * time.Hour,
		"3mo": 90 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "mo", "0mo", "xyz"} {
		_, err := ParseInterval(bad)
		assert.ErrorIs(t, err, ErrInvalidInterval, bad)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"5d":  time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC),
		"3mo": time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		"2y":  time.Date(2022, 6, 15, 10, 0, 0, 0, time.UTC),
		"ytd": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"max": {},
	}
	for period, want := range cases {
		got, err := PeriodStart(period, now)
		require.NoError(t, err, period)
		assert.Equal(t, want, got, period)
	}

	_, err := PeriodStart("abc", now)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestNewsJSON(t *testing.T) {
	var news []News
	require.NoError(t, json.Unmarshal([]byte(`[["Title A","Summary A"],{"title":"B","summary":"b"},["Only title"]]`), &news))

	assert.Equal(t, []News{
		{Title: "Title A", Summary: "Summary A"},
		{Title: "B", Summary: "b"},
		{Title: "Only title"},
	}, news)
}
