// Package config loads chartdesk settings from defaults, an optional YAML
// file, a .env file and CHARTDESK_* environment variables, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/logger/zerolog"
)

const EnvPrefix = "CHARTDESK"

// Config holds every setting of the process.
type Config struct {
	Log    LogConfig
	Feed   feed.Config
	Server ServerConfig
	Chart  ChartConfig
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level      string
	TimeLayout string
	Colored    bool
	JSON       bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ServerConfig configures the session server.
type ServerConfig struct {
	Addr          string
	Refresh       string
	Debug         bool
	DefaultSymbol string
}

// ChartConfig holds the canvas defaults of rendered charts.
type ChartConfig struct {
	Width     float64
	Height    float64
	Anchoring chart.Anchoring
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.time_layout", "2006-01-02 15:04:05")
	v.SetDefault("log.colored", true)
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("feed.source", "mock")
	v.SetDefault("feed.service_url", "http://localhost:5000")
	v.SetDefault("feed.timeout", 15*time.Second)
	v.SetDefault("feed.retries", 2)
	v.SetDefault("feed.csv_dir", "./data")
	v.SetDefault("feed.mock_bars", 120)
	v.SetDefault("feed.cache_path", "")
	v.SetDefault("feed.cache_ttl", time.Duration(0))

	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.refresh", "")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.default_symbol", "AAPL")

	v.SetDefault("chart.width", 1000)
	v.SetDefault("chart.height", 500)
	v.SetDefault("chart.anchoring", "data")
}

// Load reads the configuration. path names an optional YAML file; an empty
// path skips it.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	anchoring, err := chart.ParseAnchoring(v.GetString("chart.anchoring"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			TimeLayout: v.GetString("log.time_layout"),
			Colored:    v.GetBool("log.colored"),
			JSON:       v.GetBool("log.json"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Feed: feed.Config{
			Source:     v.GetString("feed.source"),
			ServiceURL: v.GetString("feed.service_url"),
			Timeout:    v.GetDuration("feed.timeout"),
			Retries:    v.GetInt("feed.retries"),
			CSVDir:     v.GetString("feed.csv_dir"),
			MockBars:   v.GetInt("feed.mock_bars"),
			CachePath:  v.GetString("feed.cache_path"),
			CacheTTL:   v.GetDuration("feed.cache_ttl"),
		},
		Server: ServerConfig{
			Addr:          v.GetString("server.addr"),
			Refresh:       v.GetString("server.refresh"),
			Debug:         v.GetBool("server.debug"),
			DefaultSymbol: v.GetString("server.default_symbol"),
		},
		Chart: ChartConfig{
			Width:     v.GetFloat64("chart.width"),
			Height:    v.GetFloat64("chart.height"),
			Anchoring: anchoring,
		},
	}

	return cfg, nil
}

// Logger builds the process logger described by c.
func (c LogConfig) Logger() (logger.Logger, error) {
	l, err := zerolog.New(zerolog.Options{
		Level:      c.Level,
		TimeLayout: c.TimeLayout,
		Colored:    c.Colored,
		JSON:       c.JSON,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zerolog.NewAdapter(l), nil
}
