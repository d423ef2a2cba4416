package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raykavin/chartdesk/internal/config"
	"github.com/raykavin/chartdesk/pkg/logger"
)

// Command line flags shared by every command
var (
	configPath string
	source     string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "chartdesk",
		Short:        "Candlestick charts with drawing tools",
		Version:      "1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "Data source: mock, service, csv or binance")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")

	rootCmd.AddCommand(buildServeCmd())
	rootCmd.AddCommand(buildRenderCmd())
	rootCmd.AddCommand(buildInspectCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp reads the configuration, applies the shared flag overrides and builds the logger.
func loadApp() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if source != "" {
		cfg.Feed.Source = source
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
