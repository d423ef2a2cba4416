package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/raykavin/chartdesk/internal/config"
	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/surface"
)

var (
	renderPeriod   string
	renderInterval string
	renderFormat   string
	renderOutput   string
	renderWidth    float64
	renderHeight   float64
	renderDraws    []string
	renderScript   string
)

func buildRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render SYMBOL...",
		Short: "Render charts of one or more symbols to image files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRender,
	}

	renderCmd.Flags().StringVarP(&renderPeriod, "period", "p", "1mo", "Look-back period (e.g. 6mo)")
	renderCmd.Flags().StringVarP(&renderInterval, "interval", "i", "1d", "Candle interval (e.g. 1h)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "png", "Output format: png or svg")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", ".", "Output directory")
	renderCmd.Flags().Float64Var(&renderWidth, "width", 0, "Canvas width, config default when zero")
	renderCmd.Flags().Float64Var(&renderHeight, "height", 0, "Canvas height, config default when zero")
	renderCmd.Flags().StringArrayVarP(&renderDraws, "draw", "d", nil, "Drawing to add (trend:x1,y1,x2,y2 | hline:y | flag:x,y,text)")
	renderCmd.Flags().StringVarP(&renderScript, "script", "s", "", "YAML drawing script")

	return renderCmd
}

// renderJob is everything needed to render a list of symbols.
type renderJob struct {
	loader    *feed.Loader
	log       logger.Logger
	format    surface.Format
	dir       string
	width     float64
	height    float64
	anchoring chart.Anchoring
	drawings  []Drawing
}

func runRender(cmd *cobra.Command, symbols []string) error {
	cfg, log, err := loadApp()
	if err != nil {
		return err
	}

	job, err := newRenderJob(cfg, log)
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
	job.loader = feed.NewLoader(provider, log)

	if err := os.MkdirAll(job.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	bar := progressbar.Default(int64(len(symbols)), "rendering")
	var failed []string
	for _, symbol := range symbols {
		path, err := job.render(cmd.Context(), symbol)
		if err != nil {
			log.WithError(err).WithField("symbol", symbol).Error("render failed")
			failed = append(failed, symbol)
		} else {
			log.WithField("file", path).Debug("chart written")
		}
		_ = bar.Add(1)
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to render %s", strings.Join(failed, ", "))
	}
	return nil
}

func newRenderJob(cfg *config.Config, log logger.Logger) (*renderJob, error) {
	format, err := surface.ParseFormat(renderFormat)
	if err != nil {
		return nil, err
	}

	job := &renderJob{
		log:       log,
		format:    format,
		dir:       renderOutput,
		width:     cfg.Chart.Width,
		height:    cfg.Chart.Height,
		anchoring: cfg.Chart.Anchoring,
	}

	if renderScript != "" {
		script, err := LoadScript(renderScript)
		if err != nil {
			return nil, err
		}
		if script.Width > 0 {
			job.width = script.Width
		}
		if script.Height > 0 {
			job.height = script.Height
		}
		job.drawings = append(job.drawings, script.Drawings...)
	}

	for _, spec := range renderDraws {
		d, err := ParseDrawing(spec)
		if err != nil {
			return nil, err
		}
		job.drawings = append(job.drawings, d)
	}

	if renderWidth > 0 {
		job.width = renderWidth
	}
	if renderHeight > 0 {
		job.height = renderHeight
	}

	return job, nil
}

// render loads one symbol, replays the drawings and writes the image.
func (j *renderJob) render(ctx context.Context, symbol string) (string, error) {
	data, err := j.loader.Load(ctx, feed.Query{
		Symbol:   strings.ToUpper(symbol),
		Period:   renderPeriod,
		Interval: renderInterval,
	})
	if err != nil {
		return "", err
	}

	view := chart.NewView(j.log.WithField("symbol", data.Symbol), j.width, j.height,
		chart.WithAnchoring(j.anchoring))
	defer view.Teardown()

	view.SetCandles(data.Candles)
	if err := applyDrawings(view, j.drawings); err != nil {
		return "", err
	}

	path := filepath.Join(j.dir, fmt.Sprintf("%s.%s", data.Symbol, j.format))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := surface.Encode(file, view, j.format); err != nil {
		return "", err
	}
	return path, nil
}

func applyDrawings(view *chart.View, drawings []Drawing) error {
	for i, d := range drawings {
		if err := d.Apply(view); err != nil {
			return fmt.Errorf("drawing %d: %w", i+1, err)
		}
	}
	// disarm whatever the last drawing left armed
	if tool := view.Session().ArmedTool; tool != chart.ToolNone {
		view.ArmTool(tool)
	}
	return nil
}
