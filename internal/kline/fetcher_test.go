package kline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/apiclient"
	"klinedash/internal/config"
)

const sampleKlines = `{"code":0,"message":"success","data":{
	"stock_info":{"code":"600000.SH","name":"浦发银行"},
	"klines":[
		{"date":"2024-01-03","open":7.1,"close":7.2,"high":7.3,"low":7.0,"volume":1000,"amount":7200},
		{"date":"2024-01-02","open":7.0,"close":7.1,"high":7.2,"low":6.9,"volume":900.0,"amount":6390}
	],
	"count":2,
	"indicators":{"ma":{"ma5":[null,null]}}}}`

type recorder struct {
	mu       sync.Mutex
	requests []*url.URL
}

func (r *recorder) last() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

func newFetcher(t *testing.T, body string) (*Fetcher, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.requests = append(rec.requests, r.URL)
		rec.mu.Unlock()
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	client, err := apiclient.NewClient(config.APIConfig{BaseURL: srv.URL + "/api", TimeoutSeconds: 5})
	require.NoError(t, err)
	return NewFetcher(client), rec
}

func TestFetchCalendarPeriod(t *testing.T) {
	f, rec := newFetcher(t, sampleKlines)
	params := DefaultQueryParams()
	params.Code = "600000.SH"
	params.StartDate, params.EndDate = "2024-01-01", "2024-01-31"
	params.Period = PeriodWeek
	params.AdjType = AdjAfter
	params.Indicators, _ = ParseIndicators("macd,ma")

	res, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)

	u := rec.last()
	require.NotNil(t, u)
	assert.Equal(t, "/api/kline/data", u.Path)
	q := u.Query()
	assert.Equal(t, "600000.SH", q.Get("code"))
	assert.Equal(t, "2024-01-01", q.Get("start_date"))
	assert.Equal(t, "2024-01-31", q.Get("end_date"))
	assert.Equal(t, "after", q.Get("adj_type"))
	assert.Equal(t, "week", q.Get("period"))
	assert.Equal(t, "ma,macd", q.Get("indicators"))

	assert.Equal(t, "浦发银行", res.Stock.Name)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, res.Series.Dates())
	assert.Equal(t, PeriodWeek, res.Series.Period)
	assert.Equal(t, AdjAfter, res.Series.AdjType)
	assert.Equal(t, int64(900), res.Series.Bars[0].Volume)
	assert.True(t, res.Indicators.Has(IndicatorMA))
}

func TestFetchOmitsEmptyIndicators(t *testing.T) {
	f, rec := newFetcher(t, sampleKlines)
	params := DefaultQueryParams()
	params.Code = "600000.SH"
	params.StartDate, params.EndDate = "2024-01-01", "2024-01-31"
	_, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)
	_, present := rec.last().Query()["indicators"]
	assert.False(t, present)
}

func TestFetchMinutePeriodRoutesToMinuteEndpoint(t *testing.T) {
	f, rec := newFetcher(t, sampleKlines)
	params := DefaultQueryParams()
	params.Code = "600000.SH"
	params.Period = Period15Min
	params.TradeDate = "2024-01-03"

	res, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)
	u := rec.last()
	assert.Equal(t, "/api/kline/minute", u.Path)
	assert.Equal(t, "2024-01-03", u.Query().Get("trade_date"))
	assert.Equal(t, "15", u.Query().Get("interval"))
	assert.Equal(t, "none", u.Query().Get("adj_type"))
	assert.Equal(t, Period15Min, res.Series.Period)
}

func TestFetchValidationFailsWithoutNetwork(t *testing.T) {
	f, rec := newFetcher(t, sampleKlines)
	params := DefaultQueryParams()
	params.Code = "600000.SH"
	params.Period = Period5Min

	_, err := f.Fetch(context.Background(), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTradeDateRequired)
	assert.Equal(t, apiclient.KindConfig, apiclient.KindOf(err))
	assert.Nil(t, rec.last())
}

func TestFetchApplicationError(t *testing.T) {
	f, _ := newFetcher(t, `{"code":1,"message":"invalid code","data":null}`)
	params := DefaultQueryParams()
	params.Code = "BAD"
	params.StartDate, params.EndDate = "2024-01-01", "2024-01-31"
	_, err := f.Fetch(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, apiclient.KindApplication, apiclient.KindOf(err))
	assert.Equal(t, "invalid code", apiclient.UserMessage(err))
}

func TestCompareEndpoint(t *testing.T) {
	f, rec := newFetcher(t, `{"code":0,"message":"success","data":{
		"stocks":[{"code":"A","name":"a","dates":["d1"],"values":[0]}],
		"dates":["d1"],"series":[{"name":"a","data":[0]}]}}`)
	data, err := f.Compare(context.Background(), CompareParams{Codes: []string{"A", "B"}, StartDate: "s", EndDate: "e"})
	require.NoError(t, err)
	q := rec.last().Query()
	assert.Equal(t, "A,B", q.Get("codes"))
	assert.Equal(t, "change_pct", q.Get("mode"))
	assert.Equal(t, "day", q.Get("period"))
	require.Len(t, data.Stocks, 1)
	assert.Equal(t, []string{"d1"}, data.Dates)
}
