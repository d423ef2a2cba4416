package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/series"
)

var defaultHeaderMap = map[string]int{
	"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
}

// CSV serves series from <dir>/<SYMBOL>.csv files. Rows hold a unix or
// textual timestamp and OHLCV columns; a header row may reorder them.
type CSV struct {
	log logger.Logger
	dir string
}

// NewCSV reads files from dir.
func NewCSV(dir string, log logger.Logger) *CSV {
	return &CSV{log: log, dir: dir}
}

// Fetch reads the symbol file and keeps the rows inside the query period,
// counted back from the last row.
func (c *CSV) Fetch(_ context.Context, q Query) (Quote, error) {
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	symbol := strings.ToUpper(q.Symbol)
	if strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, q.Symbol)
	}

	file := filepath.Join(c.dir, symbol+".csv")
	rows, err := readRows(file)
	if errors.Is(err, os.ErrNotExist) {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	if err != nil {
		return Quote{}, err
	}
	if len(rows) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	last, err := series.ParseTime(rows[len(rows)-1].time)
	if err == nil {
		start, perr := PeriodStart(q.Period, last)
		if perr != nil {
			return Quote{}, perr
		}
		rows = lo.Filter(rows, func(r csvRow, _ int) bool {
			t, err := series.ParseTime(r.time)
			return err != nil || !t.Before(start)
		})
	}

	c.log.WithFields(map[string]any{"file": file, "rows": len(rows)}).Debug("csv series loaded")

	return Quote{Symbol: symbol, Raw: rowsToRaw(rows)}, nil
}

type csvRow struct {
	time                           string
	open, high, low, close, volume string
}

// parseHeaders returns the column index of every field. A first cell that
// is a number means the file has no header row.
func parseHeaders(headers []string) (headerMap map[string]int, hasHeader bool) {
	if _, err := strconv.ParseFloat(headers[0], 64); err == nil {
		return defaultHeaderMap, false
	}

	headerMap = make(map[string]int)
	for index, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = index
	}
	for _, alias := range []string{"timestamp", "date", "datetime"} {
		if i, ok := headerMap[alias]; ok {
			headerMap["time"] = i
		}
	}

	return headerMap, true
}

func readRows(file string) ([]csvRow, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	headerMap, hasHeader := parseHeaders(lines[0])
	if hasHeader {
		lines = lines[1:]
	}
	if _, ok := headerMap["time"]; !ok {
		return nil, fmt.Errorf("read %s: no time column", file)
	}

	cell := func(line []string, name string) string {
		i, ok := headerMap[name]
		if !ok || i >= len(line) {
			return ""
		}
		return strings.TrimSpace(line[i])
	}

	return lo.Map(lines, func(line []string, _ int) csvRow {
		return csvRow{
			time:   unixToText(cell(line, "time")),
			open:   cell(line, "open"),
			high:   cell(line, "high"),
			low:    cell(line, "low"),
			close:  cell(line, "close"),
			volume: cell(line, "volume"),
		}
	}), nil
}

// unixToText turns a unix seconds timestamp into RFC 3339 and leaves other text alone.
func unixToText(value string) string {
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return value
	}
	return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
}

func rowsToRaw(rows []csvRow) series.Raw {
	return series.Raw{
		Timestamps: lo.Map(rows, func(r csvRow, _ int) string { return r.time }),
		Open:       lo.Map(rows, func(r csvRow, _ int) series.Number { return series.ParseNumber(r.open) }),
		High:       lo.Map(rows, func(r csvRow, _ int) series.Number { return series.ParseNumber(r.high) }),
		Low:        lo.Map(rows, func(r csvRow, _ int) series.Number { return series.ParseNumber(r.low) }),
		Close:      lo.Map(rows, func(r csvRow, _ int) series.Number { return series.ParseNumber(r.close) }),
		Volume:     lo.Map(rows, func(r csvRow, _ int) series.Number { return series.ParseNumber(r.volume) }),
	}
}
