package dashboard

import (
	"context"
	"strings"

	"klinedash/internal/config"
	"klinedash/internal/kline"
	"klinedash/internal/logger"
	"klinedash/internal/viewstate"
)

// KLinePage 是主 K 线视图。每个用户动作都会修改状态并调用 Load。
type KLinePage struct {
	state        *viewstate.State
	query        *kline.Query
	defaultStart string
	clock        Clock
	cfg          config.KlineConfig
}

func NewKLinePage(q *kline.Query, cfg config.KlineConfig) *KLinePage {
	p := &KLinePage{state: viewstate.New(), query: q, defaultStart: cfg.DefaultStart, cfg: cfg}
	p.applyDefaults()
	return p
}

// applyDefaults 应用配置中的默认复权和周期。
func (p *KLinePage) applyDefaults() {
	if adj, err := kline.ParseAdjType(p.cfg.DefaultAdjType); err == nil && adj != "" {
		p.state.SetAdjType(adj)
	}
	if period, err := kline.ParsePeriod(p.cfg.DefaultPeriod); err == nil && period != "" {
		p.state.SetPeriod(period)
	}
}

// SetClock 替换计算“今天”所用的时钟。
func (p *KLinePage) SetClock(c Clock) { p.clock = c }

func (p *KLinePage) State() *viewstate.State { return p.state }

func (p *KLinePage) Snapshot() viewstate.Snapshot { return p.state.Snapshot() }

func (p *KLinePage) SelectStock(ctx context.Context, info kline.StockInfo) (Outcome, error) {
	p.state.SelectStock(info)
	return p.Load(ctx)
}

func (p *KLinePage) SetPeriod(ctx context.Context, period kline.Period) (Outcome, error) {
	p.state.SetPeriod(period)
	return p.Load(ctx)
}

func (p *KLinePage) SetAdjType(ctx context.Context, adj kline.AdjType) (Outcome, error) {
	p.state.SetAdjType(adj)
	return p.Load(ctx)
}

func (p *KLinePage) SetDateRange(ctx context.Context, start, end string) (Outcome, error) {
	p.state.SetDateRange(start, end)
	return p.Load(ctx)
}

func (p *KLinePage) SetTradeDate(ctx context.Context, date string) (Outcome, error) {
	p.state.SetTradeDate(date)
	return p.Load(ctx)
}

func (p *KLinePage) SetIndicators(ctx context.Context, set kline.IndicatorSet) (Outcome, error) {
	p.state.SetIndicators(set)
	return p.Load(ctx)
}

// Load 按当前参数拉取。分钟周期缺交易日时只补上今天并返回
// OutcomeDeferred，由调用方再次加载。
func (p *KLinePage) Load(ctx context.Context) (Outcome, error) {
	params := p.state.Params()
	if strings.TrimSpace(params.Code) == "" {
		return OutcomeIdle, nil
	}
	if params.Period.IsMinute() {
		if strings.TrimSpace(params.TradeDate) == "" {
			// 旧周期的在途请求不能再落到新参数上
			p.query.Cancel()
			today := p.clock.today()
			p.state.SetTradeDate(today)
			p.state.SetLoading(false)
			logger.Debugf("分钟线未选择交易日，默认 %s", today)
			return OutcomeDeferred, nil
		}
	} else if params.StartDate == "" || params.EndDate == "" {
		start, end := params.StartDate, params.EndDate
		if start == "" {
			start = p.defaultStart
		}
		if end == "" {
			end = p.clock.today()
		}
		p.state.SetDateRange(start, end)
		params.StartDate, params.EndDate = start, end
	}

	tok, reqCtx := p.query.Issue(ctx)
	p.state.SetLoading(true)
	res, err := p.query.Do(reqCtx, tok, params)
	if superseded(err) {
		// 调用方自己取消时 token 仍是最新的，需要清掉 loading
		tok.Commit(func() { p.state.SetLoading(false) })
		return OutcomeSuperseded, nil
	}
	landed := tok.Commit(func() {
		if err != nil {
			p.state.ApplyError(err)
			return
		}
		p.state.ApplyResult(res)
	})
	if !landed {
		return OutcomeSuperseded, nil
	}
	if err != nil {
		logger.Errorf("加载K线失败: %s %v", params.Code, err)
		return OutcomeApplied, err
	}
	logger.Successf("加载K线成功: %s %d 条", res.Stock.Label(), res.Series.Len())
	return OutcomeApplied, nil
}

// Reset 丢弃在途请求并恢复默认参数。
func (p *KLinePage) Reset() {
	p.query.Cancel()
	p.state.Reset()
	p.applyDefaults()
}
