// Package dashboard 实现三个页面控制器：K 线页、对比页、回测页。
// 页面只通过 Token.Commit 写入自己的状态，被取代的请求结果直接丢弃。
package dashboard

import (
	"errors"
	"time"

	"klinedash/internal/apiclient"
)

// Outcome 描述一次 Load/Run 的去向。
type Outcome int

const (
	// OutcomeApplied: 结果或错误已写入状态
	OutcomeApplied Outcome = iota + 1
	// OutcomeDeferred: 只在本地补全了参数，未发请求
	OutcomeDeferred
	// OutcomeSuperseded: 被新请求或重置取代
	OutcomeSuperseded
	// OutcomeIdle: 未选股，无事可做
	OutcomeIdle
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

const dateLayout = "2006-01-02"

// Clock 返回当前时间，页面注入它以便测试“今天”。
type Clock func() time.Time

func (c Clock) today() string {
	if c == nil {
		return time.Now().Format(dateLayout)
	}
	return c().Format(dateLayout)
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// superseded 把取消归为 OutcomeSuperseded，不作为错误返回。
func superseded(err error) bool {
	return errors.Is(err, apiclient.ErrCanceled)
}
