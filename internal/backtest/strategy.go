package backtest

import (
	"fmt"
	"strings"

	"klinedash/internal/analysis/indicator"
	"klinedash/internal/kline"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Signal is a buy or sell emitted by a strategy on one bar.
type Signal struct {
	Index  int
	Date   string
	Action string
	Reason string
}

type signalFunc func(bars []kline.Bar, params map[string]any) []Signal

type strategyEntry struct {
	def     StrategyDefinition
	signals signalFunc
}

func f64(v float64) *float64 { return &v }

func numberParam(name, label string, def, min, max float64) StrategyParam {
	return StrategyParam{Name: name, Label: label, Type: "number", Default: def, Min: f64(min), Max: f64(max)}
}

var registry = []strategyEntry{
	{
		def: StrategyDefinition{
			ID: "ma_cross", Name: "MA均线交叉", Description: "快线上穿慢线买入，下穿卖出",
			Params: []StrategyParam{
				numberParam("fast_period", "快线周期", 5, 2, 60),
				numberParam("slow_period", "慢线周期", 20, 5, 120),
			},
		},
		signals: maCrossSignals,
	},
	{
		def: StrategyDefinition{
			ID: "macd", Name: "MACD策略", Description: "MACD金叉买入，死叉卖出",
			Params: []StrategyParam{
				numberParam("fast", "快线EMA周期", 12, 5, 30),
				numberParam("slow", "慢线EMA周期", 26, 10, 60),
				numberParam("signal", "信号线周期", 9, 3, 20),
			},
		},
		signals: macdSignals,
	},
	{
		def: StrategyDefinition{
			ID: "kdj", Name: "KDJ策略", Description: "KDJ超卖反弹买入，超买回落卖出",
			Params: []StrategyParam{
				numberParam("n", "RSV周期", 9, 3, 30),
				numberParam("m1", "K平滑周期", 3, 1, 10),
				numberParam("m2", "D平滑周期", 3, 1, 10),
				numberParam("oversold", "超卖线", 20, 10, 40),
				numberParam("overbought", "超买线", 80, 60, 90),
			},
		},
		signals: kdjSignals,
	},
	{
		def: StrategyDefinition{
			ID: "rsi", Name: "RSI策略", Description: "RSI超卖反弹买入，超买回落卖出",
			Params: []StrategyParam{
				numberParam("period", "RSI周期", 14, 5, 30),
				numberParam("oversold", "超卖线", 30, 20, 40),
				numberParam("overbought", "超买线", 70, 60, 80),
			},
		},
		signals: rsiSignals,
	},
	{
		def: StrategyDefinition{
			ID: "boll", Name: "布林带策略", Description: "价格触及下轨反弹买入，触及上轨回落卖出",
			Params: []StrategyParam{
				numberParam("n", "均线周期", 20, 10, 60),
				func() StrategyParam {
					p := numberParam("k", "标准差倍数", 2, 1, 3)
					p.Step = f64(0.1)
					return p
				}(),
			},
		},
		signals: bollSignals,
	},
}

// Definitions lists the built-in strategies in display order.
func Definitions() []StrategyDefinition {
	out := make([]StrategyDefinition, len(registry))
	for i, e := range registry {
		out[i] = e.def
		out[i].Params = append([]StrategyParam(nil), e.def.Params...)
	}
	return out
}

// Lookup finds a strategy definition by id within defs.
func Lookup(defs []StrategyDefinition, id string) (StrategyDefinition, error) {
	id = strings.TrimSpace(id)
	for _, d := range defs {
		if d.ID == id {
			return d, nil
		}
	}
	return StrategyDefinition{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
}

func lookupEntry(id string) (strategyEntry, error) {
	for _, e := range registry {
		if e.def.ID == id {
			return e, nil
		}
	}
	return strategyEntry{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
}

// GenerateSignals runs strategy id over bars.
func GenerateSignals(id string, bars []kline.Bar, params map[string]any) ([]Signal, error) {
	e, err := lookupEntry(id)
	if err != nil {
		return nil, err
	}
	return e.signals(bars, params), nil
}

// crossings walks consecutive pairs where every line has a value.
func crossings(bars []kline.Bar, lines []kline.Line, fn func(i int, prev, curr []float64) (string, string)) []Signal {
	var out []Signal
	prev := make([]float64, len(lines))
	curr := make([]float64, len(lines))
	for i := 1; i < len(bars); i++ {
		ok := true
		for j, l := range lines {
			var okp, okc bool
			prev[j], okp = indicator.Value(l, i-1)
			curr[j], okc = indicator.Value(l, i)
			ok = ok && okp && okc
		}
		if !ok {
			continue
		}
		if action, reason := fn(i, prev, curr); action != "" {
			out = append(out, Signal{Index: i, Date: bars[i].Date, Action: action, Reason: reason})
		}
	}
	return out
}

func maCrossSignals(bars []kline.Bar, params map[string]any) []Signal {
	fast := Int(params, "fast_period", 5)
	slow := Int(params, "slow_period", 20)
	closes := indicator.Closes(bars)
	lines := []kline.Line{indicator.MA(closes, fast), indicator.MA(closes, slow)}
	return crossings(bars, lines, func(_ int, p, c []float64) (string, string) {
		switch {
		case p[0] <= p[1] && c[0] > c[1]:
			return ActionBuy, fmt.Sprintf("MA%d上穿MA%d", fast, slow)
		case p[0] >= p[1] && c[0] < c[1]:
			return ActionSell, fmt.Sprintf("MA%d下穿MA%d", fast, slow)
		}
		return "", ""
	})
}

func macdSignals(bars []kline.Bar, params map[string]any) []Signal {
	m := indicator.MACD(indicator.Closes(bars), indicator.MACDSettings{
		Fast:   Int(params, "fast", 12),
		Slow:   Int(params, "slow", 26),
		Signal: Int(params, "signal", 9),
	})
	return crossings(bars, []kline.Line{m.MACD}, func(_ int, p, c []float64) (string, string) {
		switch {
		case p[0] <= 0 && c[0] > 0:
			return ActionBuy, "MACD金叉"
		case p[0] >= 0 && c[0] < 0:
			return ActionSell, "MACD死叉"
		}
		return "", ""
	})
}

func kdjSignals(bars []kline.Bar, params map[string]any) []Signal {
	oversold := Float(params, "oversold", 20)
	overbought := Float(params, "overbought", 80)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
	}
	k := indicator.KDJ(highs, lows, indicator.Closes(bars), indicator.KDJSettings{
		N:  Int(params, "n", 9),
		M1: Int(params, "m1", 3),
		M2: Int(params, "m2", 3),
	})
	return crossings(bars, []kline.Line{k.K, k.J}, func(_ int, p, c []float64) (string, string) {
		switch {
		case p[1] < oversold && p[1] <= p[0] && c[1] > c[0]:
			return ActionBuy, fmt.Sprintf("KDJ超卖反弹(J=%.1f)", c[1])
		case p[1] > overbought && p[1] >= p[0] && c[1] < c[0]:
			return ActionSell, fmt.Sprintf("KDJ超买回落(J=%.1f)", c[1])
		}
		return "", ""
	})
}

func rsiSignals(bars []kline.Bar, params map[string]any) []Signal {
	oversold := Float(params, "oversold", 30)
	overbought := Float(params, "overbought", 70)
	line := indicator.RSI(indicator.Closes(bars), Int(params, "period", 14))
	return crossings(bars, []kline.Line{line}, func(_ int, p, c []float64) (string, string) {
		switch {
		case p[0] < oversold && c[0] >= oversold:
			return ActionBuy, fmt.Sprintf("RSI超卖反弹(RSI=%.1f)", c[0])
		case p[0] > overbought && c[0] <= overbought:
			return ActionSell, fmt.Sprintf("RSI超买回落(RSI=%.1f)", c[0])
		}
		return "", ""
	})
}

func bollSignals(bars []kline.Bar, params map[string]any) []Signal {
	closes := indicator.Closes(bars)
	b := indicator.BOLL(closes, indicator.BOLLSettings{N: Int(params, "n", 20), K: Float(params, "k", 2)})
	return crossings(bars, []kline.Line{b.Lower, b.Upper}, func(i int, p, c []float64) (string, string) {
		prevClose, currClose := closes[i-1], closes[i]
		switch {
		case prevClose <= p[0] && currClose > c[0]:
			return ActionBuy, "触及布林下轨反弹"
		case prevClose >= p[1] && currClose < c[1]:
			return ActionSell, "触及布林上轨回落"
		}
		return "", ""
	})
}
