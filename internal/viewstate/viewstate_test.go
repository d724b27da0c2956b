package viewstate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/kline"
)

func dirty(s *State) {
	s.SelectStock(kline.StockInfo{Code: "600000.SH", Name: "浦发银行"})
	s.SetPeriod(kline.Period5Min)
	s.SetAdjType(kline.AdjBefore)
	s.SetDateRange("2024-01-01", "2024-02-01")
	s.SetTradeDate("2024-02-01")
	set, _ := kline.ParseIndicators("ma", "rsi")
	s.SetIndicators(set)
	s.SetLoading(true)
	s.ApplyError(errors.New("boom"))
}

func TestResetRestoresDefaults(t *testing.T) {
	s := New()
	fresh := s.Snapshot()
	assert.Equal(t, kline.AdjNone, fresh.Params.AdjType)
	assert.Equal(t, kline.PeriodDay, fresh.Params.Period)
	assert.Empty(t, fresh.Params.TradeDate)
	assert.Empty(t, fresh.Params.Indicators)
	assert.Nil(t, fresh.Series)
	assert.NoError(t, fresh.Err)
	assert.False(t, fresh.Loading)

	dirty(s)
	s.Reset()
	once := s.Snapshot()
	s.Reset()
	twice := s.Snapshot()
	assert.Equal(t, fresh, once)
	assert.Equal(t, once, twice)
}

func TestApplyResultClearsLoadingAndError(t *testing.T) {
	s := New()
	s.SetLoading(true)
	s.ApplyError(errors.New("first"))
	s.SetLoading(true)
	assert.NoError(t, s.Snapshot().Err)

	bars := []kline.Bar{{Date: "2024-01-02", Close: decimal.NewFromInt(10)}}
	s.ApplyResult(kline.Result{
		Stock:  kline.StockInfo{Code: "A", Name: "Alpha"},
		Series: kline.NewBarSeries("A", kline.PeriodDay, kline.AdjNone, bars),
	})
	snap := s.Snapshot()
	require.NotNil(t, snap.Series)
	assert.Equal(t, 1, snap.Series.Len())
	assert.Equal(t, "Alpha", snap.Stock.Name)
	assert.False(t, snap.Loading)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	set, _ := kline.ParseIndicators("macd")
	s.SetIndicators(set)
	s.ApplyResult(kline.Result{Series: kline.NewBarSeries("A", kline.PeriodDay, kline.AdjNone,
		[]kline.Bar{{Date: "2024-01-02"}})})

	snap := s.Snapshot()
	snap.Params.Indicators[kline.IndicatorBOLL] = struct{}{}
	snap.Series.Bars[0].Date = "mutated"
	set[kline.IndicatorKDJ] = struct{}{}

	again := s.Snapshot()
	assert.Equal(t, []kline.Indicator{kline.IndicatorMACD}, again.Params.Indicators.List())
	assert.Equal(t, "2024-01-02", again.Series.Bars[0].Date)
}

func TestSelectStockUpdatesParamsCode(t *testing.T) {
	s := New()
	s.SelectStock(kline.StockInfo{Code: "000001.SZ"})
	assert.Equal(t, "000001.SZ", s.Params().Code)
	assert.Equal(t, "000001.SZ", s.Snapshot().Code)
}
