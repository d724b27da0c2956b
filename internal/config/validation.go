package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.Kline.validate(); err != nil {
		return err
	}
	if err := c.Compare.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (a *APIConfig) validate() error {
	raw := strings.TrimSpace(a.BaseURL)
	if raw == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("api.base_url invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be http(s), got %q", u.Scheme)
	}
	if a.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	return nil
}

func (k *KlineConfig) validate() error {
	switch k.DefaultAdjType {
	case "none", "before", "after":
	default:
		return fmt.Errorf("kline.default_adj_type must be none/before/after, got %q", k.DefaultAdjType)
	}
	if strings.TrimSpace(k.DefaultPeriod) == "" {
		return fmt.Errorf("kline.default_period cannot be empty")
	}
	return nil
}

func (c *CompareConfig) validate() error {
	if c.MaxStocks <= 0 {
		return fmt.Errorf("compare.max_stocks must be > 0")
	}
	switch c.DefaultMode {
	case "change", "price":
	default:
		return fmt.Errorf("compare.default_mode must be change/price, got %q", c.DefaultMode)
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be > 0")
	}
	if b.PositionRatio <= 0 || b.PositionRatio > 1 {
		return fmt.Errorf("backtest.position_ratio must be in (0, 1]")
	}
	return nil
}
