package config

// 默认值常量
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultLogMaxSizeMB   = 50
	defaultLogMaxBackups  = 5
	defaultPanelSize      = 100
	defaultAPIBaseURL     = "http://localhost:8000/api"
	defaultAPITimeout     = 30
	defaultKlineStart     = "2010-01-01"
	defaultKlineAdjType   = "none"
	defaultKlinePeriod    = "day"
	defaultCompareMax     = 5
	defaultCompareMode    = "change"
	defaultCompareMonths  = 6
	defaultInitialCapital = 100000
	defaultPositionRatio  = 0.8
	defaultArchivePath    = "data/backtest_runs.db"
	defaultChartWidth     = 1600
	defaultChartHeight    = 900
	defaultMockAddr       = ":8000"
	defaultMockSeed       = 42
)

// Default 返回应用全部默认值后的配置。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(nil)
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.API.applyDefaults(keys)
	c.Kline.applyDefaults(keys)
	c.Compare.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Chart.applyDefaults(keys)
	c.Mock.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		intFieldDefault("app.log_max_size_mb", &a.LogMaxSizeMB, defaultLogMaxSizeMB),
		intFieldDefault("app.log_max_backups", &a.LogMaxBackups, defaultLogMaxBackups),
		intFieldDefault("app.panel_size", &a.PanelSize, defaultPanelSize),
	)
}

func (a *APIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("api.base_url", &a.BaseURL, defaultAPIBaseURL),
		intFieldDefault("api.timeout_seconds", &a.TimeoutSeconds, defaultAPITimeout),
	)
}

func (k *KlineConfig) applyDefaults(keys keySet) {
	if k == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("kline.default_start", &k.DefaultStart, defaultKlineStart),
		stringFieldDefault("kline.default_adj_type", &k.DefaultAdjType, defaultKlineAdjType),
		stringFieldDefault("kline.default_period", &k.DefaultPeriod, defaultKlinePeriod),
	)
}

func (c *CompareConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("compare.max_stocks", &c.MaxStocks, defaultCompareMax),
		stringFieldDefault("compare.default_mode", &c.DefaultMode, defaultCompareMode),
		intFieldDefault("compare.lookback_months", &c.LookbackMonths, defaultCompareMonths),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "backtest.initial_capital",
			need:  func() bool { return b.InitialCapital <= 0 },
			apply: func() { b.InitialCapital = defaultInitialCapital },
		},
		fieldDefault{
			key:   "backtest.position_ratio",
			need:  func() bool { return b.PositionRatio <= 0 },
			apply: func() { b.PositionRatio = defaultPositionRatio },
		},
		stringFieldDefault("backtest.archive_path", &b.ArchivePath, defaultArchivePath),
	)
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("chart.width", &c.Width, defaultChartWidth),
		intFieldDefault("chart.height", &c.Height, defaultChartHeight),
	)
}

func (m *MockConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("mock.addr", &m.Addr, defaultMockAddr),
		fieldDefault{
			key:   "mock.seed",
			need:  func() bool { return m.Seed == 0 },
			apply: func() { m.Seed = defaultMockSeed },
		},
	)
}

// 辅助函数

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
