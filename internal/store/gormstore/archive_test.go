package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/backtest"
	"klinedash/internal/store"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func sampleResult(code string, ret float64) backtest.Result {
	return backtest.Result{
		StockCode:      code,
		StockName:      "样例",
		StartDate:      "2024-01-01",
		EndDate:        "2024-06-30",
		StrategyName:   "MA均线交叉",
		StrategyParams: map[string]any{"fast_period": 5.0},
		InitialCapital: 100000,
		FinalCapital:   100000 * (1 + ret/100),
		Metrics:        backtest.Metrics{TotalReturn: ret, MaxDrawdown: 3.5},
		Trades:         []backtest.TradeRecord{{Date: "2024-02-01", Action: backtest.ActionBuy, Shares: 100}},
		EquityCurve:    []backtest.EquityPoint{{Date: "2024-01-02", Value: 100000}},
	}
}

func TestArchiveSaveGet(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	id, err := a.Save(ctx, sampleResult("600000.SH", 12.3))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := a.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "600000.SH", got.StockCode)
	assert.Equal(t, 12.3, got.Metrics.TotalReturn)
	assert.Equal(t, 5.0, got.StrategyParams["fast_period"])
	require.Len(t, got.Trades, 1)
	assert.Equal(t, int64(100), got.Trades[0].Shares)
}

func TestArchiveListNewestFirst(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	step := 0
	a.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	for _, code := range []string{"A", "B", "C"} {
		_, err := a.Save(ctx, sampleResult(code, 1))
		require.NoError(t, err)
	}
	rows, err := a.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].StockCode)
	assert.Equal(t, "B", rows[1].StockCode)
	assert.Equal(t, 1, rows[0].Trades)

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestArchiveGetMissing(t *testing.T) {
	a := newArchive(t)
	_, err := a.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewArchiveRequiresPath(t *testing.T) {
	_, err := NewArchive("  ")
	assert.Error(t, err)
}
