package config

import "strings"

// Config 是 klinedash 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Kline    KlineConfig    `mapstructure:"kline"`
	Compare  CompareConfig  `mapstructure:"compare"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Mock     MockConfig     `mapstructure:"mock"`
}

type AppConfig struct {
	Env           string `mapstructure:"env"`
	LogLevel      string `mapstructure:"log_level"`
	LogPath       string `mapstructure:"log_path"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	PanelSize     int    `mapstructure:"panel_size"`
}

// APIConfig 描述远端 K 线服务。超时由传输层统一控制。
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type KlineConfig struct {
	DefaultStart   string `mapstructure:"default_start"`
	DefaultAdjType string `mapstructure:"default_adj_type"`
	DefaultPeriod  string `mapstructure:"default_period"`
}

type CompareConfig struct {
	MaxStocks      int    `mapstructure:"max_stocks"`
	DefaultMode    string `mapstructure:"default_mode"`
	LookbackMonths int    `mapstructure:"lookback_months"`
}

type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	PositionRatio  float64 `mapstructure:"position_ratio"`
	ArchivePath    string  `mapstructure:"archive_path"`
}

type ChartConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type MockConfig struct {
	Addr string `mapstructure:"addr"`
	Seed int64  `mapstructure:"seed"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
