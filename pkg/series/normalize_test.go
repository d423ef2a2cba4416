package series

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/raykavin/chartdesk/pkg/logger/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_KeepsOrderAndValues(t *testing.T) {
	raw := Raw{
		Timestamps: []string{"2024-01-02 00:00:00", "2024-01-01T00:00:00Z", "2024-01-03"},
		Open:       Numbers(10, 11, 12),
		High:       Numbers(12, 13, 14),
		Low:        Numbers(9, 10, 11),
		Close:      Numbers(11, 12, 13),
		Volume:     Numbers(100, 200, 300),
	}

	res, err := NewNormalizer(zerolog.Nop()).Normalize(raw)
	require.NoError(t, err)
	require.Len(t, res.Candles, 3)

	// input order is preserved even when timestamps are not sorted
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), res.Candles[0].Time)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.Candles[1].Time)
	assert.Equal(t, 11.0, res.Candles[1].Open)
	assert.Equal(t, 300.0, res.Candles[2].Volume)
	assert.Zero(t, res.Report.DroppedTotal())
}

func TestNormalize_ShapeMismatch(t *testing.T) {
	raw := Raw{
		Timestamps: []string{"2024-01-01", "2024-01-02"},
		Open:       Numbers(1, 2),
		High:       Numbers(1, 2),
		Low:        Numbers(1),
		Close:      Numbers(1, 2),
	}

	_, err := NewNormalizer(nil).Normalize(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNormalize_VolumeShapeMismatch(t *testing.T) {
	raw := Raw{
		Timestamps: []string{"2024-01-01"},
		Open:       Numbers(1),
		High:       Numbers(1),
		Low:        Numbers(1),
		Close:      Numbers(1),
		Volume:     Numbers(1, 2),
	}

	_, err := NewNormalizer(nil).Normalize(raw)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNormalize_DropsMalformedRows(t *testing.T) {
	raw := Raw{
		Timestamps: []string{"2024-01-01", "2024-01-02", "not-a-date", "2024-01-04", "2024-01-05"},
		Open:       []Number{10, NaN(), 10, 10, 10},
		High:       []Number{12, 12, 12, 9, Number(math.Inf(1))},
		Low:        []Number{9, 9, 9, 8, 9},
		Close:      []Number{11, 11, 11, 11, 11},
	}

	res, err := NewNormalizer(zerolog.Nop()).Normalize(raw)
	require.NoError(t, err)
	require.Len(t, res.Candles, 1)
	assert.Equal(t, 5, res.Report.Rows)
	assert.Equal(t, 1, res.Report.Kept)
	assert.Equal(t, 4, res.Report.DroppedTotal())
	assert.Equal(t, 2, res.Report.Dropped[DropNonNumeric])
	assert.Equal(t, 1, res.Report.Dropped[DropBadTimestamp])
	assert.Equal(t, 1, res.Report.Dropped[DropInconsistent])
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Close []Number `json:"close"`
	}
	err := json.Unmarshal([]byte(`{"close":[1.5,null,"2.25","abc",""]}`), &payload)
	require.NoError(t, err)
	require.Len(t, payload.Close, 5)

	assert.Equal(t, 1.5, payload.Close[0].Float())
	assert.False(t, payload.Close[1].Valid())
	assert.Equal(t, 2.25, payload.Close[2].Float())
	assert.False(t, payload.Close[3].Valid())
	assert.False(t, payload.Close[4].Valid())
}

func TestNumber_MarshalNaNAsNull(t *testing.T) {
	out, err := json.Marshal([]Number{1, NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,null]`, string(out))
}

func TestParseTime_Layouts(t *testing.T) {
	for _, value := range []string{
		"2024-03-01T10:00:00Z",
		"2024-03-01T10:00:00+05:30",
		"2024-03-01 10:00:00",
		"2024-03-01",
	} {
		_, err := ParseTime(value)
		assert.NoError(t, err, value)
	}

	_, err := ParseTime("03/01/2024")
	assert.Error(t, err)
}
