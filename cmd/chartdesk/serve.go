package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/plot"
)

var (
	serveAddr    string
	serveRefresh string
	serveDebug   bool
)

func buildServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve interactive chart sessions over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (e.g. :8080)")
	serveCmd.Flags().StringVar(&serveRefresh, "refresh", "", "Reload sessions on a cron schedule (e.g. \"@every 1m\")")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Serve the browser script unminified")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	refresh := cfg.Server.Refresh
	if serveRefresh != "" {
		refresh = serveRefresh
	}

	options := []plot.Option{
		plot.WithAnchoring(cfg.Chart.Anchoring),
		plot.WithDefaultSymbol(cfg.Server.DefaultSymbol),
	}
	if refresh != "" {
		options = append(options, plot.WithRefresh(refresh))
	}
	if serveDebug || cfg.Server.Debug {
		options = append(options, plot.WithDebug())
	}

	srv, err := plot.New(feed.NewLoader(provider, log), log, options...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("source", cfg.Feed.Source).Info("starting chart server")
	return srv.Run(ctx, addr)
}
