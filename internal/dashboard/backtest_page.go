package dashboard

import (
	"context"
	"errors"

	"klinedash/internal/backtest"
	"klinedash/internal/kline"
	"klinedash/internal/logger"
	"klinedash/internal/store"
)

// BacktestPage 管理回测页：策略列表、配置合并、运行与可选归档。
type BacktestPage struct {
	svc     *backtest.Service
	state   *backtest.State
	archive store.RunArchive
	slot    kline.Slot
}

// NewBacktestPage 构建回测页，archive 可为 nil。
func NewBacktestPage(svc *backtest.Service, archive store.RunArchive) *BacktestPage {
	return &BacktestPage{svc: svc, state: backtest.NewState(), archive: archive}
}

func (p *BacktestPage) State() *backtest.State { return p.state }

func (p *BacktestPage) Snapshot() backtest.StateSnapshot { return p.state.Snapshot() }

// LoadStrategies 拉取策略列表，失败时保留旧列表。
func (p *BacktestPage) LoadStrategies(ctx context.Context) ([]backtest.StrategyDefinition, error) {
	defs, err := p.svc.Strategies(ctx)
	if err != nil {
		logger.Errorf("加载策略列表失败: %v", err)
		return nil, err
	}
	p.state.SetStrategies(defs)
	return defs, nil
}

// Configure 把 patch 合并进回测配置。
func (p *BacktestPage) Configure(patch backtest.ConfigPatch) {
	p.state.SetConfig(patch)
}

// RunResult 是一次成功运行的结果及归档编号（未归档时为空）。
type RunResult struct {
	Result    backtest.Result
	ArchiveID string
}

// Run 按当前配置执行回测。已加载策略列表时，参数按对应策略定义校验。
func (p *BacktestPage) Run(ctx context.Context) (Outcome, RunResult, error) {
	snap := p.state.Snapshot()
	var def *backtest.StrategyDefinition
	if len(snap.Strategies) > 0 {
		d, err := backtest.Lookup(snap.Strategies, snap.Config.StrategyID)
		if err != nil {
			p.state.SetError(err)
			return OutcomeApplied, RunResult{}, err
		}
		def = &d
	}

	tok, reqCtx := p.slot.Issue(ctx)
	p.state.SetLoading(true)
	res, err := p.svc.Run(reqCtx, snap.Config, def)
	if superseded(err) || (err != nil && errors.Is(reqCtx.Err(), context.Canceled)) {
		tok.Commit(func() { p.state.SetLoading(false) })
		return OutcomeSuperseded, RunResult{}, nil
	}
	landed := tok.Commit(func() {
		if err != nil {
			p.state.SetError(err)
			return
		}
		r := res
		p.state.SetResult(&r)
	})
	if !landed {
		return OutcomeSuperseded, RunResult{}, nil
	}
	if err != nil {
		return OutcomeApplied, RunResult{}, err
	}
	out := RunResult{Result: res}
	if p.archive != nil {
		id, aerr := p.archive.Save(ctx, res)
		if aerr != nil {
			logger.Warnf("回测结果归档失败: %v", aerr)
		} else {
			out.ArchiveID = id
		}
	}
	return OutcomeApplied, out, nil
}

// Reset 丢弃在途回测并恢复默认配置，策略列表保留。
func (p *BacktestPage) Reset() {
	p.slot.Cancel()
	p.state.Reset()
}
