package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/chartdesk/pkg/chart"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "mock", cfg.Feed.Source)
	assert.Equal(t, 15*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 120, cfg.Feed.MockBars)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, 1000.0, cfg.Chart.Width)
	assert.Equal(t, chart.AnchorData, cfg.Chart.Anchoring)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
feed:
  source: csv
  csv_dir: /srv/quotes
  cache_ttl: 5m
server:
  addr: ":9000"
chart:
  anchoring: pixel
`), 0o600))

	t.Setenv("CHARTDESK_SERVER_ADDR", ":9100")
	t.Setenv("CHARTDESK_FEED_RETRIES", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "csv", cfg.Feed.Source)
	assert.Equal(t, "/srv/quotes", cfg.Feed.CSVDir)
	assert.Equal(t, 5*time.Minute, cfg.Feed.CacheTTL)
	assert.Equal(t, 5, cfg.Feed.Retries)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, chart.AnchorPixel, cfg.Chart.Anchoring)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("CHARTDESK_CHART_ANCHORING", "sideways")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoggerFromConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	log, err := cfg.Log.Logger()
	require.NoError(t, err)
	assert.NotNil(t, log.WithField("component", "test"))

	cfg.Log.Level = "loud"
	_, err = cfg.Log.Logger()
	assert.Error(t, err)
}
