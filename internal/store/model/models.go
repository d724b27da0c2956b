package model

import (
	"time"

	"gorm.io/datatypes"
)

// BacktestRunModel keeps summary columns for listing plus the full result.
type BacktestRunModel struct {
	ID           string         `gorm:"column:id;primaryKey"`
	StockCode    string         `gorm:"column:stock_code;index"`
	StockName    string         `gorm:"column:stock_name"`
	StrategyName string         `gorm:"column:strategy_name"`
	StartDate    string         `gorm:"column:start_date"`
	EndDate      string         `gorm:"column:end_date"`
	TotalReturn  float64        `gorm:"column:total_return"`
	MaxDrawdown  float64        `gorm:"column:max_drawdown"`
	Trades       int            `gorm:"column:trades"`
	ParamsJSON   datatypes.JSON `gorm:"column:params_json"`
	ResultJSON   datatypes.JSON `gorm:"column:result_json"`
	CreatedAt    time.Time      `gorm:"column:created_at;index"`
}

func (BacktestRunModel) TableName() string { return "backtest_runs" }
