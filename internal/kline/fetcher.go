package kline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"klinedash/internal/apiclient"
)

const (
	pathKlineData   = "/kline/data"
	pathKlineMinute = "/kline/minute"
	pathCompareData = "/compare/data"
)

// API is the transport Fetcher depends on; *apiclient.Client satisfies it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Fetcher is the stateless K-line endpoint layer; it never supersedes requests.
type Fetcher struct {
	api API
}

func NewFetcher(api API) *Fetcher {
	return &Fetcher{api: api}
}

// Fetch routes minute periods to the intraday endpoint and everything else
// to the calendar endpoint.
func (f *Fetcher) Fetch(ctx context.Context, q QueryParams) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, apiclient.ConfigError(routePath(q.Period), err)
	}
	if q.AdjType == "" {
		q.AdjType = AdjNone
	}
	if q.Period.IsMinute() {
		return f.FetchMinute(ctx, q.Code, q.TradeDate, q.Period.Minutes(), q.AdjType)
	}
	query := url.Values{}
	query.Set("code", strings.TrimSpace(q.Code))
	query.Set("start_date", q.StartDate)
	query.Set("end_date", q.EndDate)
	query.Set("adj_type", string(q.AdjType))
	query.Set("period", string(q.Period))
	if joined := q.Indicators.Join(); joined != "" {
		query.Set("indicators", joined)
	}
	var data klineData
	if err := f.api.Get(ctx, pathKlineData, query, &data); err != nil {
		return Result{}, err
	}
	return toResult(q.Code, q.Period, q.AdjType, data), nil
}

// FetchMinute loads intraday bars of one trade date.
func (f *Fetcher) FetchMinute(ctx context.Context, code, tradeDate string, interval int, adj AdjType) (Result, error) {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return Result{}, apiclient.ConfigError(pathKlineMinute, ErrCodeRequired)
	case strings.TrimSpace(tradeDate) == "":
		return Result{}, apiclient.ConfigError(pathKlineMinute, ErrTradeDateRequired)
	case interval <= 0:
		return Result{}, apiclient.ConfigError(pathKlineMinute, fmt.Errorf("invalid minute interval %d", interval))
	}
	if adj == "" {
		adj = AdjNone
	}
	query := url.Values{}
	query.Set("code", code)
	query.Set("trade_date", tradeDate)
	query.Set("interval", strconv.Itoa(interval))
	query.Set("adj_type", string(adj))
	var data klineData
	if err := f.api.Get(ctx, pathKlineMinute, query, &data); err != nil {
		return Result{}, err
	}
	return toResult(code, Period(fmt.Sprintf("%d%s", interval, minuteMarker)), adj, data), nil
}

func routePath(p Period) string {
	if p.IsMinute() {
		return pathKlineMinute
	}
	return pathKlineData
}

func toResult(code string, period Period, adj AdjType, data klineData) Result {
	stock := data.StockInfo
	if stock.Code == "" {
		stock.Code = code
	}
	if data.Period != "" {
		if p, err := ParsePeriod(data.Period); err == nil {
			period = p
		}
	}
	return Result{
		Stock:      stock,
		Series:     NewBarSeries(stock.Code, period, adj, data.Klines),
		Indicators: data.Indicators,
	}
}

// CompareParams are the query of the server-side /compare/data endpoint.
type CompareParams struct {
	Codes     []string
	StartDate string
	EndDate   string
	Period    Period
	Mode      string
}

type CompareStock struct {
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

type CompareLine struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// CompareData is the server-side comparison; the client normalizer does not use it.
type CompareData struct {
	Stocks []CompareStock `json:"stocks"`
	Dates  []string       `json:"dates"`
	Series []CompareLine  `json:"series"`
}

func (f *Fetcher) Compare(ctx context.Context, p CompareParams) (CompareData, error) {
	if len(p.Codes) == 0 {
		return CompareData{}, apiclient.ConfigError(pathCompareData, ErrCodeRequired)
	}
	if p.Period == "" {
		p.Period = PeriodDay
	}
	if p.Mode == "" {
		p.Mode = "change_pct"
	}
	query := url.Values{}
	query.Set("codes", strings.Join(p.Codes, ","))
	query.Set("start_date", p.StartDate)
	query.Set("end_date", p.EndDate)
	query.Set("period", string(p.Period))
	query.Set("mode", p.Mode)
	var data CompareData
	if err := f.api.Get(ctx, pathCompareData, query, &data); err != nil {
		return CompareData{}, err
	}
	return data, nil
}
