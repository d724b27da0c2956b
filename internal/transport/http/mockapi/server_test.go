package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/apiclient"
	"klinedash/internal/backtest"
	"klinedash/internal/config"
	"klinedash/internal/kline"
	"klinedash/internal/stock"
)

func newTestAPI(t *testing.T) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(Config{Seed: 42, AsOf: testAsOf}).Handler())
	t.Cleanup(srv.Close)
	c, err := apiclient.NewClient(config.APIConfig{BaseURL: srv.URL + "/api", TimeoutSeconds: 5})
	require.NoError(t, err)
	return c
}

func TestStockEndpoints(t *testing.T) {
	api := newTestAPI(t)
	cat := stock.NewCatalog(api)
	ctx := context.Background()

	page, err := cat.List(ctx, "银行", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Positive(t, page.Items[0].Records)

	dr, err := cat.DateRange(ctx, "300750.SZ")
	require.NoError(t, err)
	assert.Equal(t, "2018-06-11", dr.StartDate)
	assert.Equal(t, "2024-06-28", dr.EndDate)

	_, err = cat.DateRange(ctx, "999999.SH")
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiclient.KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Message, "股票不存在")
}

func TestKlineDataWithIndicators(t *testing.T) {
	f := kline.NewFetcher(newTestAPI(t))
	set, err := kline.ParseIndicators("ma,macd")
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), kline.QueryParams{
		Code: "600519.SH", StartDate: "2024-01-01", EndDate: "2024-06-30",
		AdjType: kline.AdjBefore, Period: kline.PeriodDay, Indicators: set,
	})
	require.NoError(t, err)
	assert.Equal(t, "贵州茅台", res.Stock.Name)
	assert.Equal(t, "2024-01-01", res.Series.First())
	assert.Equal(t, "2024-06-28", res.Series.Last())
	assert.True(t, res.Indicators.Has(kline.IndicatorMA))
	assert.True(t, res.Indicators.Has(kline.IndicatorMACD))
	assert.False(t, res.Indicators.Has(kline.IndicatorKDJ))

	data, err := res.Indicators.Decode()
	require.NoError(t, err)
	require.Contains(t, data.MA, "ma5")
	assert.Len(t, data.MA["ma5"], res.Series.Len())
	assert.Nil(t, data.MA["ma5"][0])
	assert.NotNil(t, data.MA["ma5"][4])
}

func TestKlinePeriodAggregation(t *testing.T) {
	f := kline.NewFetcher(newTestAPI(t))
	res, err := f.Fetch(context.Background(), kline.QueryParams{
		Code: "600000.SH", StartDate: "2024-01-01", EndDate: "2024-06-30", Period: kline.PeriodMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, kline.PeriodMonth, res.Series.Period)
	assert.Equal(t, 6, res.Series.Len())
}

func TestKlineMinute(t *testing.T) {
	f := kline.NewFetcher(newTestAPI(t))
	res, err := f.Fetch(context.Background(), kline.QueryParams{
		Code: "000001.SZ", Period: kline.Period("15min"), TradeDate: "2024-06-03",
	})
	require.NoError(t, err)
	assert.Equal(t, 16, res.Series.Len())
	assert.Equal(t, "2024-06-03 09:45", res.Series.First())

	weekend, err := f.FetchMinute(context.Background(), "000001.SZ", "2024-06-01", 1, kline.AdjNone)
	require.NoError(t, err)
	assert.True(t, weekend.Series.Empty())
}

func TestMissingQueryIsValidationError(t *testing.T) {
	api := newTestAPI(t)
	err := api.Get(context.Background(), "/kline/data", url.Values{"code": {"600000.SH"}}, nil)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "field required", apiErr.Message)
}

func TestCompareEndpoint(t *testing.T) {
	f := kline.NewFetcher(newTestAPI(t))
	data, err := f.Compare(context.Background(), kline.CompareParams{
		Codes: []string{"600000.SH", "999999.SH", "300750.SZ"}, StartDate: "2024-03-01", EndDate: "2024-03-29",
	})
	require.NoError(t, err)
	require.Len(t, data.Stocks, 2)
	assert.Equal(t, "600000.SH", data.Stocks[0].Code)
	assert.Equal(t, 0.0, data.Stocks[0].Values[0])
	assert.Equal(t, data.Stocks[0].Dates, data.Dates)
	assert.Equal(t, "浦发银行 (600000.SH)", data.Series[0].Name)

	_, err = f.Compare(context.Background(), kline.CompareParams{
		Codes: []string{"1", "2", "3", "4", "5", "6"}, StartDate: "2024-03-01", EndDate: "2024-03-29",
	})
	assert.Equal(t, "最多支持5只股票对比", apiclient.UserMessage(err))
}

func TestBacktestEndpoints(t *testing.T) {
	svc := backtest.NewService(newTestAPI(t))
	ctx := context.Background()

	defs, err := svc.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, defs, len(backtest.Definitions()))
	def, err := backtest.Lookup(defs, "ma_cross")
	require.NoError(t, err)

	res, err := svc.Run(ctx, backtest.Request{
		Code: "600036.SH", StartDate: "2023-01-01", EndDate: "2024-06-28", StrategyID: "ma_cross",
		StrategyParams: map[string]any{"fast_period": 5, "slow_period": 20},
	}, &def)
	require.NoError(t, err)
	assert.Equal(t, "招商银行", res.StockName)
	assert.Equal(t, 100000.0, res.InitialCapital)
	assert.Len(t, res.EquityCurve, len(res.DailyRecords))
	require.NotNil(t, res.Metrics.BuyHoldReturn)
}

func TestBacktestRunRejectsUnknownStrategy(t *testing.T) {
	h := NewServer(Config{Seed: 1, AsOf: testAsOf}).Handler()
	body, _ := json.Marshal(backtest.Request{Code: "600036.SH", StartDate: "2024-01-01", EndDate: "2024-06-28", StrategyID: "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/backtest/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}
