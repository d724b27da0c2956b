package mockapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"klinedash/internal/analysis/indicator"
	"klinedash/internal/backtest"
	"klinedash/internal/compare"
	"klinedash/internal/kline"
	"klinedash/internal/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
	maxCompareStocks = 5
)

// 以下为线上 JSON 结构，价格按数字输出。
type wireBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
	Amount float64 `json:"amount"`
}

type wireStock struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type klineResponse struct {
	StockInfo  wireStock            `json:"stock_info"`
	Klines     []wireBar            `json:"klines"`
	Count      int                  `json:"count"`
	Period     string               `json:"period,omitempty"`
	Indicators *kline.IndicatorData `json:"indicators,omitempty"`
}

func toWire(bars []kline.Bar) []wireBar {
	out := make([]wireBar, len(bars))
	for i, b := range bars {
		out[i] = wireBar{
			Date:   b.Date,
			Open:   b.Open.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Volume: b.Volume,
			Amount: b.Amount.InexactFloat64(),
		}
	}
	return out
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

// detail 使用 FastAPI HTTPException 的错误体。
func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// invalid 使用 FastAPI 参数校验失败 (422) 的错误体。
func invalid(c *gin.Context, field, msg string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
		"loc":  []string{"query", field},
		"msg":  msg,
		"type": "value_error",
	}}})
}

func requireQuery(c *gin.Context, names ...string) (map[string]string, bool) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v := strings.TrimSpace(c.Query(name))
		if v == "" {
			invalid(c, name, "field required")
			return nil, false
		}
		out[name] = v
	}
	return out, true
}

func (s *Server) handleStockList(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			invalid(c, "limit", "value is not a valid integer")
			return
		}
		if n > maxListLimit {
			invalid(c, "limit", "ensure this value is less than or equal to 100")
			return
		}
		limit = n
	}
	hits := s.market.Search(c.Query("keyword"), limit)
	items := make([]gin.H, 0, len(hits))
	for _, l := range hits {
		items = append(items, gin.H{"code": l.Code, "name": l.Name, "records": len(s.market.Daily(l))})
	}
	ok(c, gin.H{"items": items, "total": len(items)})
}

func (s *Server) handleDateRange(c *gin.Context) {
	q, valid := requireQuery(c, "code")
	if !valid {
		return
	}
	l, found := s.market.Lookup(q["code"])
	if !found {
		detail(c, http.StatusNotFound, "股票不存在: "+q["code"])
		return
	}
	bars := s.market.Daily(l)
	if len(bars) == 0 {
		ok(c, nil)
		return
	}
	ok(c, gin.H{"start_date": bars[0].Date, "end_date": bars[len(bars)-1].Date})
}

// series 取 [start, end] 的日线并按复权方式和周期加工。
func (s *Server) series(l Listing, start, end string, adj kline.AdjType, period kline.Period) []kline.Bar {
	all := s.market.Daily(l)
	latest := ""
	if len(all) > 0 {
		latest = all[len(all)-1].Date
	}
	bars := Adjust(Between(all, start, end), adj, l.Listed, latest)
	return Aggregate(bars, period)
}

func (s *Server) handleKlineData(c *gin.Context) {
	q, valid := requireQuery(c, "code", "start_date", "end_date")
	if !valid {
		return
	}
	adj, err := kline.ParseAdjType(c.DefaultQuery("adj_type", string(kline.AdjNone)))
	if err != nil {
		invalid(c, "adj_type", err.Error())
		return
	}
	period, err := kline.ParsePeriod(c.DefaultQuery("period", string(kline.PeriodDay)))
	if err != nil || period.IsMinute() {
		invalid(c, "period", "unsupported period")
		return
	}
	set, err := kline.ParseIndicators(c.Query("indicators"))
	if err != nil {
		invalid(c, "indicators", err.Error())
		return
	}
	l, found := s.market.Lookup(q["code"])
	if !found {
		detail(c, http.StatusNotFound, "股票不存在: "+q["code"])
		return
	}
	bars := s.series(l, q["start_date"], q["end_date"], adj, period)
	resp := klineResponse{
		StockInfo: wireStock{Code: l.Code, Name: l.Name},
		Klines:    toWire(bars),
		Count:     len(bars),
		Period:    string(period),
	}
	if len(set) > 0 && len(bars) > 0 {
		data, err := indicator.Compute(bars, set, indicator.Settings{})
		if err != nil {
			detail(c, http.StatusInternalServerError, "服务器错误: "+err.Error())
			return
		}
		resp.Indicators = &data
	}
	ok(c, resp)
}

func (s *Server) handleKlineMinute(c *gin.Context) {
	q, valid := requireQuery(c, "code", "trade_date")
	if !valid {
		return
	}
	interval, err := strconv.Atoi(c.DefaultQuery("interval", "1"))
	if err != nil || interval <= 0 {
		invalid(c, "interval", "value is not a valid integer")
		return
	}
	adj, err := kline.ParseAdjType(c.DefaultQuery("adj_type", string(kline.AdjNone)))
	if err != nil {
		invalid(c, "adj_type", err.Error())
		return
	}
	l, found := s.market.Lookup(q["code"])
	if !found {
		detail(c, http.StatusNotFound, "股票不存在: "+q["code"])
		return
	}
	day := s.series(l, q["trade_date"], q["trade_date"], adj, kline.PeriodDay)
	resp := klineResponse{
		StockInfo: wireStock{Code: l.Code, Name: l.Name},
		Klines:    []wireBar{},
		Period:    strconv.Itoa(interval) + "min",
	}
	if len(day) == 1 {
		resp.Klines = toWire(s.market.Minute(l, day[0], interval))
		resp.Count = len(resp.Klines)
	}
	ok(c, resp)
}

func (s *Server) handleCompare(c *gin.Context) {
	q, valid := requireQuery(c, "codes", "start_date", "end_date")
	if !valid {
		return
	}
	var codes []string
	for _, code := range strings.Split(q["codes"], ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	switch {
	case len(codes) == 0:
		detail(c, http.StatusBadRequest, "至少需要选择1只股票")
		return
	case len(codes) > maxCompareStocks:
		detail(c, http.StatusBadRequest, "最多支持5只股票对比")
		return
	}
	mode, err := compare.ParseMode(c.DefaultQuery("mode", "change_pct"))
	if err != nil {
		invalid(c, "mode", err.Error())
		return
	}
	period, err := kline.ParsePeriod(c.DefaultQuery("period", string(kline.PeriodDay)))
	if err != nil || period.IsMinute() {
		invalid(c, "period", "unsupported period")
		return
	}

	inputs := make([]compare.Input, 0, len(codes))
	for _, code := range codes {
		l, found := s.market.Lookup(code)
		if !found {
			inputs = append(inputs, compare.Input{Stock: kline.StockInfo{Code: code}, Err: errors.New("股票不存在")})
			continue
		}
		bars := s.series(l, q["start_date"], q["end_date"], kline.AdjAfter, period)
		series := kline.NewBarSeries(l.Code, period, kline.AdjAfter, bars)
		inputs = append(inputs, compare.Input{Stock: kline.StockInfo{Code: l.Code, Name: l.Name}, Series: &series})
	}
	normalized := compare.Normalize(inputs, mode)

	stocks := make([]kline.CompareStock, 0, len(normalized))
	lines := make([]kline.CompareLine, 0, len(normalized))
	for _, ser := range normalized {
		dates := make([]string, len(ser.Points))
		for i, p := range ser.Points {
			dates[i] = p.Date
		}
		values := ser.Values()
		stocks = append(stocks, kline.CompareStock{Code: ser.Code, Name: ser.Name, Dates: dates, Values: values})
		lines = append(lines, kline.CompareLine{Name: kline.StockInfo{Code: ser.Code, Name: ser.Name}.Label(), Data: values})
	}
	dates := compare.Axis(normalized)
	if dates == nil {
		dates = []string{}
	}
	logger.Infof("对比数据准备完成: %d 只股票", len(stocks))
	ok(c, kline.CompareData{Stocks: stocks, Dates: dates, Series: lines})
}

func (s *Server) handleStrategies(c *gin.Context) {
	ok(c, backtest.Definitions())
}

func (s *Server) handleBacktestRun(c *gin.Context) {
	var req backtest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc": []string{"body"}, "msg": err.Error(), "type": "value_error",
		}}})
		return
	}
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc": []string{"body"}, "msg": err.Error(), "type": "value_error",
		}}})
		return
	}
	l, found := s.market.Lookup(req.Code)
	if !found {
		detail(c, http.StatusNotFound, "股票不存在: "+req.Code)
		return
	}
	start := time.Now()
	bars := s.series(l, req.StartDate, req.EndDate, kline.AdjAfter, kline.PeriodDay)
	res, err := backtest.Simulate(kline.StockInfo{Code: l.Code, Name: l.Name}, bars, req, backtest.DefaultEngineConfig())
	switch {
	case errors.Is(err, backtest.ErrNoBars):
		detail(c, http.StatusNotFound, "没有找到K线数据")
		return
	case errors.Is(err, backtest.ErrUnknownStrategy):
		detail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		detail(c, http.StatusBadRequest, "回测参数错误: "+err.Error())
		return
	}
	logger.Infof("回测完成: %s %s 交易 %d 次 耗时 %s", l.Code, res.StrategyName, res.Metrics.TotalTrades, time.Since(start))
	ok(c, res)
}
