package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaultAPIBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, "none", cfg.Kline.DefaultAdjType)
	assert.Equal(t, "day", cfg.Kline.DefaultPeriod)
	assert.Equal(t, 5, cfg.Compare.MaxStocks)
	assert.Equal(t, 0.8, cfg.Backtest.PositionRatio)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "api:\n  base_url: http://base:9000/api\n  timeout_seconds: 5\ncompare:\n  max_stocks: 3\n")
	main := writeFile(t, dir, "main.yaml", "include:\n  - base.yaml\napi:\n  base_url: http://override:8000/api\napp:\n  log_level: debug\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "http://override:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Compare.MaxStocks)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, defaultKlineStart, cfg.Kline.DefaultStart)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"scheme":  "api:\n  base_url: ftp://host/api\n",
		"adjtype": "kline:\n  default_adj_type: sideways\n",
		"ratio":   "backtest:\n  position_ratio: 1.5\n",
		"mode":    "compare:\n  default_mode: log\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name+".yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
