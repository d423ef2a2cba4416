package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/indicator"
)

var (
	inspectPeriod   string
	inspectInterval string
	inspectBins     int
	inspectCompare  []string
)

func buildInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect SYMBOL",
		Short: "Print a candle and indicator summary of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	inspectCmd.Flags().StringVarP(&inspectPeriod, "period", "p", "6mo", "Look-back period")
	inspectCmd.Flags().StringVarP(&inspectInterval, "interval", "i", "1d", "Candle interval")
	inspectCmd.Flags().IntVar(&inspectBins, "bins", 15, "Histogram bins of the close returns")
	inspectCmd.Flags().StringSliceVarP(&inspectCompare, "compare", "c", nil, "Symbols to compare with")

	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadApp()
	if err != nil {
		return err
	}

	provider, closeFeed, err := feed.Open(cfg.Feed, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFeed(); err != nil {
			log.WithError(err).Warn("failed to close feed cache")
		}
	}()

	data, err := feed.NewLoader(provider, log).Load(cmd.Context(), feed.Query{
		Symbol:   strings.ToUpper(args[0]),
		Period:   inspectPeriod,
		Interval: inspectInterval,
		Compare:  inspectCompare,
	})
	if err != nil {
		return err
	}

	summary := indicator.Summarize(data.Candles)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, summaryTable(data, summary))

	fmt.Fprintln(out, "------ CLOSE RETURNS -------")
	if err := printReturns(out, data, inspectBins); err != nil {
		return err
	}

	if len(data.Compare) > 0 {
		fmt.Fprintln(out, "------ COMPARISONS -------")
		fmt.Fprintln(out, compareTable(data.Compare))
	}

	if len(data.News) > 0 {
		fmt.Fprintln(out, "------ NEWS -------")
		for _, n := range data.News {
			fmt.Fprintf(out, "* %s\n  %s\n", n.Title, n.Summary)
		}
	}
	return nil
}

// summaryTable formats the series report and indicator values.
func summaryTable(data feed.Series, s indicator.Summary) string {
	builder := &strings.Builder{}
	table := tablewriter.NewWriter(builder)

	rows := [][]string{
		{"Symbol", data.Symbol},
		{"Candles", strconv.Itoa(s.Bars)},
		{"Dropped rows", strconv.Itoa(data.Report.DroppedTotal())},
	}
	if s.Bars > 0 {
		first, last := data.Candles[0].Time, data.Candles[len(data.Candles)-1].Time
		rows = append(rows, []string{"Range", first.Format("2006-01-02") + " .. " + last.Format("2006-01-02")})
	}

	rows = append(rows,
		[]string{"Last", number(s.Last, 2)},
		[]string{"Change", number(s.Change, 2) + " (" + number(s.ChangePct, 2) + " %)"},
		[]string{"High / Low", number(s.High, 2) + " / " + number(s.Low, 2)},
		[]string{"Trend", s.Trend()},
		[]string{fmt.Sprintf("SMA %d / %d", indicator.ShortPeriod, indicator.LongPeriod), number(s.SMAShort, 2) + " / " + number(s.SMALong, 2)},
		[]string{fmt.Sprintf("EMA %d", indicator.ShortPeriod), number(s.EMAShort, 2)},
		[]string{fmt.Sprintf("RSI %d", indicator.RSIPeriod), number(s.RSI, 1)},
		[]string{"MACD / Signal", number(s.MACD, 3) + " / " + number(s.MACDSignal, 3)},
		[]string{fmt.Sprintf("ATR %d", indicator.ATRPeriod), number(s.ATR, 2)},
		[]string{"Bands", number(s.BandLower, 2) + " .. " + number(s.BandUpper, 2)},
		[]string{"Return mean / sd", number(s.ReturnMean*100, 3) + " / " + number(s.ReturnStdDev*100, 3) + " %"},
		[]string{"Volatility 95%", number(s.Volatility.Lower*100, 3) + " .. " + number(s.Volatility.Upper*100, 3) + " %"},
	)

	table.AppendBulk(rows)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return builder.String()
}

// compareTable lists the compared symbols by name.
func compareTable(compare map[string]feed.Comparison) string {
	builder := &strings.Builder{}
	table := tablewriter.NewWriter(builder)
	table.SetHeader([]string{"Symbol", "Last", "Change", "Change %", "Bars"})

	symbols := lo.Keys(compare)
	sort.Strings(symbols)
	for _, symbol := range symbols {
		c := compare[symbol]
		table.Append([]string{
			symbol,
			number(c.LastPrice.Float(), 2),
			number(c.Change.Float(), 2),
			number(c.PercentChange.Float(), 2),
			strconv.Itoa(len(c.Close)),
		})
	}

	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.Render()
	return builder.String()
}

func printReturns(w io.Writer, data feed.Series, bins int) error {
	closes := make([]float64, len(data.Candles))
	for i, c := range data.Candles {
		closes[i] = c.Close
	}

	returns := indicator.Returns(closes)
	if len(returns) < 2 {
		_, err := fmt.Fprintln(w, "not enough candles")
		return err
	}

	percent := make([]float64, len(returns))
	for i, r := range returns {
		percent[i] = r * 100
	}

	hist := histogram.Hist(bins, percent)
	return histogram.Fprint(w, hist, histogram.Linear(10))
}

func number(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
