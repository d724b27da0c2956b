// Package store defines persistence for finished backtest runs.
package store

import (
	"context"
	"errors"
	"time"

	"klinedash/internal/backtest"
)

var ErrNotFound = errors.New("backtest run not found")

// RunSummary is one row of the archive listing.
type RunSummary struct {
	ID           string    `json:"id" yaml:"id"`
	StockCode    string    `json:"stock_code" yaml:"stock_code"`
	StockName    string    `json:"stock_name" yaml:"stock_name"`
	StrategyName string    `json:"strategy_name" yaml:"strategy_name"`
	StartDate    string    `json:"start_date" yaml:"start_date"`
	EndDate      string    `json:"end_date" yaml:"end_date"`
	TotalReturn  float64   `json:"total_return" yaml:"total_return"`
	MaxDrawdown  float64   `json:"max_drawdown" yaml:"max_drawdown"`
	Trades       int       `json:"trades" yaml:"trades"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// RunArchive stores finished runs; List returns newest first.
type RunArchive interface {
	Save(ctx context.Context, res backtest.Result) (string, error)
	List(ctx context.Context, limit int) ([]RunSummary, error)
	Get(ctx context.Context, id string) (backtest.Result, error)
	Close() error
}
