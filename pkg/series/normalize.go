// Package series turns the parallel OHLC arrays delivered by data
// collaborators into an ordered candle sequence.
package series

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger"
)

var ErrShapeMismatch = errors.New("series arrays have different lengths")

// timestamp layouts accepted, most specific first
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Raw is the collaborator payload: parallel arrays of equal length.
// Volume may be empty.
type Raw struct {
	Timestamps []string `json:"timestamps"`
	Open       []Number `json:"open"`
	High       []Number `json:"high"`
	Low        []Number `json:"low"`
	Close      []Number `json:"close"`
	Volume     []Number `json:"volume,omitempty"`
}

// Len returns the row count, assuming the shape is valid.
func (r Raw) Len() int { return len(r.Timestamps) }

// DropReason classifies a skipped row.
type DropReason string

const (
	DropNonNumeric   DropReason = "non_numeric"
	DropBadTimestamp DropReason = "bad_timestamp"
	DropInconsistent DropReason = "inconsistent_ohlc"
)

// Report summarises what Normalize skipped.
type Report struct {
	Rows    int                `json:"rows"`
	Kept    int                `json:"kept"`
	Dropped map[DropReason]int `json:"dropped,omitempty"`
}

// DroppedTotal returns the number of skipped rows.
func (r Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Result is the output of Normalize.
type Result struct {
	Candles []core.Candle
	Report  Report
}

// Normalizer converts Raw payloads to candles.
type Normalizer struct {
	log logger.Logger
}

func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize validates the shape of raw and converts every usable row to a
// candle, keeping input order. Bad rows are skipped and counted.
func (n *Normalizer) Normalize(raw Raw) (Result, error) {
	if err := checkShape(raw); err != nil {
		return Result{}, err
	}

	report := Report{Rows: raw.Len(), Dropped: make(map[DropReason]int)}
	candles := make([]core.Candle, 0, raw.Len())

	for i := range raw.Timestamps {
		candle, reason, ok := row(raw, i)
		if !ok {
			report.Dropped[reason]++
			continue
		}
		candles = append(candles, candle)
	}
	report.Kept = len(candles)

	if dropped := report.DroppedTotal(); dropped > 0 && n.log != nil {
		n.log.WithFields(map[string]any{
			"rows":    report.Rows,
			"dropped": dropped,
			"reasons": report.Dropped,
		}).Warn("skipped malformed candle rows")
	}

	return Result{Candles: candles, Report: report}, nil
}

func checkShape(raw Raw) error {
	n := len(raw.Timestamps)
	lengths := []int{len(raw.Open), len(raw.High), len(raw.Low), len(raw.Close)}
	for _, l := range lengths {
		if l != n {
			return fmt.Errorf("%w: timestamps=%d open=%d high=%d low=%d close=%d",
				ErrShapeMismatch, n, lengths[0], lengths[1], lengths[2], lengths[3])
		}
	}

	if len(raw.Volume) != 0 && len(raw.Volume) != n {
		return fmt.Errorf("%w: timestamps=%d volume=%d", ErrShapeMismatch, n, len(raw.Volume))
	}

	return nil
}

func row(raw Raw, i int) (core.Candle, DropReason, bool) {
	o, h, l, c := raw.Open[i], raw.High[i], raw.Low[i], raw.Close[i]
	if !o.Valid() || !h.Valid() || !l.Valid() || !c.Valid() {
		return core.Candle{}, DropNonNumeric, false
	}

	ts, err := ParseTime(raw.Timestamps[i])
	if err != nil {
		return core.Candle{}, DropBadTimestamp, false
	}

	candle := core.Candle{
		Time:  ts,
		Open:  o.Float(),
		High:  h.Float(),
		Low:   l.Float(),
		Close: c.Float(),
	}
	if len(raw.Volume) > 0 && raw.Volume[i].Valid() {
		candle.Volume = raw.Volume[i].Float()
	}

	if !candle.Consistent() {
		return core.Candle{}, DropInconsistent, false
	}

	return candle, "", true
}

// ParseTime parses a collaborator timestamp in any of the accepted layouts.
// Layouts without a zone are read as UTC.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
