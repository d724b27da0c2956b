// Package backtest covers strategy backtests: the remote run endpoints, the
// page state, parameter validation, and a local engine used by the mock
// backend.
package backtest

import "errors"

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrNoBars          = errors.New("no kline data in range")
)

const (
	DefaultInitialCapital = 100000.0
	DefaultPositionRatio  = 0.8
)

// StrategyParam defines one strategy parameter; Min/Max/Step are optional.
type StrategyParam struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label" yaml:"label"`
	Type    string   `json:"type" yaml:"type"`
	Default any      `json:"default" yaml:"default"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step    *float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

type StrategyDefinition struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Params      []StrategyParam `json:"params" yaml:"params"`
}

// Request is the body of POST /backtest/run.
type Request struct {
	Code           string         `json:"code"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	StrategyID     string         `json:"strategy_id"`
	StrategyParams map[string]any `json:"strategy_params"`
	InitialCapital float64        `json:"initial_capital"`
	PositionRatio  float64        `json:"position_ratio"`
}

type TradeRecord struct {
	Date       string  `json:"date"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Action     string  `json:"action"`
	Price      float64 `json:"price"`
	Shares     int64   `json:"shares"`
	Amount     float64 `json:"amount"`
	Commission float64 `json:"commission"`
	Reason     string  `json:"reason"`
}

type PositionInfo struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Shares       int64   `json:"shares"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitPct    float64 `json:"profit_pct"`
}

type DailyPosition struct {
	Date        string         `json:"date"`
	Cash        float64        `json:"cash"`
	MarketValue float64        `json:"market_value"`
	TotalValue  float64        `json:"total_value"`
	Positions   []PositionInfo `json:"positions"`
}

// Metrics are performance figures; percentage fields are in %.
type Metrics struct {
	TotalReturn     float64  `json:"total_return"`
	AnnualReturn    float64  `json:"annual_return"`
	MaxDrawdown     float64  `json:"max_drawdown"`
	SharpeRatio     float64  `json:"sharpe_ratio"`
	WinRate         float64  `json:"win_rate"`
	ProfitLossRatio float64  `json:"profit_loss_ratio"`
	TotalTrades     int      `json:"total_trades"`
	WinTrades       int      `json:"win_trades"`
	LossTrades      int      `json:"loss_trades"`
	BuyHoldReturn   *float64 `json:"buy_hold_return,omitempty"`
	ExcessReturn    *float64 `json:"excess_return,omitempty"`
}

type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type Result struct {
	StockCode      string          `json:"stock_code"`
	StockName      string          `json:"stock_name"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	StrategyName   string          `json:"strategy_name"`
	StrategyParams map[string]any  `json:"strategy_params"`
	InitialCapital float64         `json:"initial_capital"`
	FinalCapital   float64         `json:"final_capital"`
	Metrics        Metrics         `json:"metrics"`
	DailyRecords   []DailyPosition `json:"daily_records"`
	Trades         []TradeRecord   `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equity_curve"`
	BuyHoldCurve   []EquityPoint   `json:"buy_hold_curve,omitempty"`
}
