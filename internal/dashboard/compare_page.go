package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"klinedash/internal/compare"
	"klinedash/internal/config"
	"klinedash/internal/kline"
	"klinedash/internal/logger"
)

var (
	ErrTooManyStocks    = errors.New("too many stocks selected")
	ErrMinuteNotAllowed = errors.New("comparison does not support minute periods")
)

// Status 是对比页的加载状态。
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	// StatusEmpty: 批次已落地，但所有股票都被排除
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// CompareSnapshot 是对比页状态的拷贝。
type CompareSnapshot struct {
	Selected  []kline.StockInfo
	StartDate string
	EndDate   string
	Period    kline.Period
	Mode      compare.Mode
	Series    []compare.Series
	// Failed 记录本批次中请求失败的股票代码及原因。
	Failed map[string]error
	Status Status
}

// ComparePage 同时拉取至多 max 只股票，整批作为一个请求参与取代。
type ComparePage struct {
	fetcher        *kline.Fetcher
	slot           kline.Slot
	max            int
	lookbackMonths int
	clock          Clock
	defaultMode    compare.Mode

	mu     sync.Mutex
	snap   CompareSnapshot
	inputs []compare.Input
}

func NewComparePage(f *kline.Fetcher, cfg config.CompareConfig) *ComparePage {
	mode, err := compare.ParseMode(cfg.DefaultMode)
	if err != nil {
		mode = compare.ModeChange
	}
	p := &ComparePage{
		fetcher:        f,
		max:            cfg.MaxStocks,
		lookbackMonths: cfg.LookbackMonths,
		defaultMode:    mode,
	}
	if p.max <= 0 {
		p.max = 5
	}
	p.resetLocked()
	return p
}

func (p *ComparePage) SetClock(c Clock) { p.clock = c }

// MaxStocks 返回可选股票上限。
func (p *ComparePage) MaxStocks() int { return p.max }

func (p *ComparePage) resetLocked() {
	p.snap = CompareSnapshot{Period: kline.PeriodDay, Mode: p.defaultMode, Status: StatusIdle}
	p.inputs = nil
}

func (p *ComparePage) Snapshot() CompareSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.snap
	out.Selected = append([]kline.StockInfo(nil), p.snap.Selected...)
	out.Series = cloneSeries(p.snap.Series)
	if p.snap.Failed != nil {
		out.Failed = make(map[string]error, len(p.snap.Failed))
		for k, v := range p.snap.Failed {
			out.Failed[k] = v
		}
	}
	return out
}

func cloneSeries(in []compare.Series) []compare.Series {
	if in == nil {
		return nil
	}
	out := make([]compare.Series, len(in))
	for i, s := range in {
		s.Points = append([]compare.Point(nil), s.Points...)
		out[i] = s
	}
	return out
}

// SetStocks 替换选股并加载。
func (p *ComparePage) SetStocks(ctx context.Context, stocks []kline.StockInfo) (Outcome, error) {
	if len(stocks) > p.max {
		return OutcomeIdle, fmt.Errorf("%w: %d > %d", ErrTooManyStocks, len(stocks), p.max)
	}
	p.mu.Lock()
	p.snap.Selected = append([]kline.StockInfo(nil), stocks...)
	p.mu.Unlock()
	return p.Load(ctx)
}

// AddStock 追加一只股票，已选中时不重复添加。
func (p *ComparePage) AddStock(ctx context.Context, info kline.StockInfo) (Outcome, error) {
	p.mu.Lock()
	for _, s := range p.snap.Selected {
		if strings.EqualFold(s.Code, info.Code) {
			p.mu.Unlock()
			return p.Load(ctx)
		}
	}
	if len(p.snap.Selected) >= p.max {
		p.mu.Unlock()
		return OutcomeIdle, fmt.Errorf("%w: limit %d", ErrTooManyStocks, p.max)
	}
	p.snap.Selected = append(p.snap.Selected, info)
	p.mu.Unlock()
	return p.Load(ctx)
}

func (p *ComparePage) RemoveStock(ctx context.Context, code string) (Outcome, error) {
	p.mu.Lock()
	kept := p.snap.Selected[:0]
	for _, s := range p.snap.Selected {
		if !strings.EqualFold(s.Code, code) {
			kept = append(kept, s)
		}
	}
	p.snap.Selected = kept
	p.mu.Unlock()
	return p.Load(ctx)
}

func (p *ComparePage) SetDateRange(ctx context.Context, start, end string) (Outcome, error) {
	p.mu.Lock()
	p.snap.StartDate, p.snap.EndDate = start, end
	p.mu.Unlock()
	return p.Load(ctx)
}

func (p *ComparePage) SetPeriod(ctx context.Context, period kline.Period) (Outcome, error) {
	if period.IsMinute() {
		return OutcomeIdle, ErrMinuteNotAllowed
	}
	p.mu.Lock()
	p.snap.Period = period
	p.mu.Unlock()
	return p.Load(ctx)
}

// SetMode 用上一批已落地的数据重新归一化，不发请求。
func (p *ComparePage) SetMode(mode compare.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Mode = mode
	if p.inputs == nil {
		return
	}
	p.snap.Series = compare.Normalize(p.inputs, mode)
	p.snap.Status = statusOf(p.snap.Series)
}

// settledStatusLocked 返回不在加载中时应显示的状态。
func (p *ComparePage) settledStatusLocked() Status {
	if p.inputs == nil {
		return StatusIdle
	}
	return statusOf(p.snap.Series)
}

func statusOf(series []compare.Series) Status {
	if len(series) == 0 {
		return StatusEmpty
	}
	return StatusReady
}

// Load 并发拉取所有选中股票，全部结束后再归一化。单只失败不影响其他股票。
func (p *ComparePage) Load(ctx context.Context) (Outcome, error) {
	p.mu.Lock()
	selected := append([]kline.StockInfo(nil), p.snap.Selected...)
	start, end, period := p.snap.StartDate, p.snap.EndDate, p.snap.Period
	if end == "" {
		end = p.clock.today()
	}
	if start == "" {
		start = p.clock.now().AddDate(0, -p.lookbackMonths, 0).Format(dateLayout)
	}
	p.snap.StartDate, p.snap.EndDate = start, end
	p.mu.Unlock()

	if len(selected) == 0 {
		p.slot.Cancel()
		p.mu.Lock()
		p.snap.Series = []compare.Series{}
		p.snap.Failed = nil
		p.snap.Status = StatusIdle
		p.inputs = nil
		p.mu.Unlock()
		return OutcomeIdle, nil
	}

	tok, batchCtx := p.slot.Issue(ctx)
	p.mu.Lock()
	p.snap.Status = StatusLoading
	p.mu.Unlock()

	inputs := make([]compare.Input, len(selected))
	var g errgroup.Group
	for i, info := range selected {
		i, info := i, info
		g.Go(func() error {
			res, err := p.fetcher.Fetch(batchCtx, kline.QueryParams{
				Code:      info.Code,
				StartDate: start,
				EndDate:   end,
				AdjType:   kline.AdjNone,
				Period:    period,
			})
			in := compare.Input{Stock: info, Err: err}
			if err == nil {
				if res.Stock.Name != "" {
					in.Stock = res.Stock
				}
				series := res.Series
				in.Series = &series
			}
			inputs[i] = in
			return nil
		})
	}
	_ = g.Wait()

	if !tok.Current() || batchCtx.Err() != nil {
		// 调用方取消：批次仍是最新的，状态回到上一批的结果
		tok.Commit(func() {
			p.mu.Lock()
			p.snap.Status = p.settledStatusLocked()
			p.mu.Unlock()
		})
		return OutcomeSuperseded, nil
	}
	failed := make(map[string]error)
	for _, in := range inputs {
		if in.Err != nil {
			failed[in.Stock.Code] = in.Err
		}
	}
	var series []compare.Series
	landed := tok.Commit(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// 取提交时的模式，加载期间 SetMode 的结果不会被覆盖
		series = compare.Normalize(inputs, p.snap.Mode)
		p.inputs = inputs
		p.snap.Series = series
		p.snap.Failed = failed
		p.snap.Status = statusOf(series)
	})
	if !landed {
		return OutcomeSuperseded, nil
	}
	if !compare.Aligned(series) {
		logger.Warnf("对比股票日期不一致，按首只股票日期绘制")
	}
	logger.Successf("对比数据加载完成: %d/%d 只股票", len(series), len(selected))
	return OutcomeApplied, nil
}

// Reset 丢弃在途批次并清空页面。
func (p *ComparePage) Reset() {
	p.slot.Cancel()
	p.mu.Lock()
	p.resetLocked()
	p.mu.Unlock()
}
