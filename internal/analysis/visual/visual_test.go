package visual

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/backtest"
	"klinedash/internal/compare"
	"klinedash/internal/kline"
)

func sampleResult(t *testing.T, withIndicators bool) kline.Result {
	t.Helper()
	bars := make([]kline.Bar, 0, 3)
	for i, c := range []int64{10, 11, 9} {
		d := decimal.NewFromInt(c)
		bars = append(bars, kline.Bar{
			Date: []string{"2024-01-02", "2024-01-03", "2024-01-04"}[i],
			Open: d, Close: d.Add(decimal.NewFromInt(1)), High: d.Add(decimal.NewFromInt(2)), Low: d.Sub(decimal.NewFromInt(1)),
			Volume: 1000 * (c + 1),
		})
	}
	res := kline.Result{
		Stock:  kline.StockInfo{Code: "600000.SH", Name: "浦发银行"},
		Series: kline.NewBarSeries("600000.SH", kline.PeriodDay, kline.AdjNone, bars),
	}
	if withIndicators {
		raw, err := json.Marshal(map[string]any{
			"ma":   map[string]any{"ma5": []any{nil, 10.5, 10.1}},
			"macd": map[string]any{"dif": []any{nil, 0.1, 0.2}, "dea": []any{nil, 0.05, 0.1}, "macd": []any{nil, 0.1, -0.2}},
			"rsi":  map[string]any{"rsi6": []any{nil, 55.0, 40.0}},
		})
		require.NoError(t, err)
		res.Indicators = kline.IndicatorPayload(raw)
	}
	return res
}

func TestKLineHTML(t *testing.T) {
	html, err := KLineHTML(sampleResult(t, true), Options{})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "echarts")
	assert.Contains(t, s, "浦发银行 (600000.SH)")
	assert.Contains(t, s, "MA5")
	assert.Contains(t, s, "DIF")
	assert.Contains(t, s, "RSI6")
	assert.NotContains(t, s, "KDJ")
}

func TestKLineHTMLWithoutIndicators(t *testing.T) {
	html, err := KLineHTML(sampleResult(t, false), Options{Title: "plain"})
	require.NoError(t, err)
	assert.Contains(t, string(html), "plain")
	assert.NotContains(t, string(html), "DIF")
}

func TestKLineHTMLRejectsEmpty(t *testing.T) {
	_, err := KLineHTML(kline.Result{}, Options{})
	assert.Error(t, err)
}

func TestCompareHTML(t *testing.T) {
	series := []compare.Series{
		{Code: "A", Name: "Alpha", Points: []compare.Point{{Date: "2024-01-02", Value: 0}, {Date: "2024-01-03", Value: 10}}},
		{Code: "B", Points: []compare.Point{{Date: "2024-01-03", Value: 0}}},
	}
	html, err := CompareHTML(series, compare.ModeChange, Options{Width: 800, Height: 400})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "Alpha")
	assert.Contains(t, s, "800px")
	assert.Contains(t, s, "日期未对齐")

	_, err = CompareHTML(nil, compare.ModePrice, Options{})
	assert.Error(t, err)
}

func TestEquityHTML(t *testing.T) {
	res := backtest.Result{
		StockName:    "Alpha",
		StrategyName: "MA均线交叉",
		EquityCurve:  []backtest.EquityPoint{{Date: "2024-01-02", Value: 100000}, {Date: "2024-01-03", Value: 101000}},
		BuyHoldCurve: []backtest.EquityPoint{{Date: "2024-01-02", Value: 100000}, {Date: "2024-01-03", Value: 100500}},
	}
	html, err := EquityHTML(res, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "买入持有")

	_, err = EquityHTML(backtest.Result{}, Options{})
	assert.Error(t, err)
}
