// Package indicator computes the K-line overlays (MA, MACD, KDJ, RSI, BOLL)
// the backend attaches to /kline/data.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"klinedash/internal/kline"
)

// Settings holds indicator parameters; zero values take the defaults.
type Settings struct {
	MAPeriods  []int
	RSIPeriods []int
	MACD       MACDSettings
	KDJ        KDJSettings
	BOLL       BOLLSettings
}

type MACDSettings struct {
	Fast   int `json:"fast,omitempty"`
	Slow   int `json:"slow,omitempty"`
	Signal int `json:"signal,omitempty"`
}

type KDJSettings struct {
	N  int `json:"n,omitempty"`
	M1 int `json:"m1,omitempty"`
	M2 int `json:"m2,omitempty"`
}

type BOLLSettings struct {
	N int     `json:"n,omitempty"`
	K float64 `json:"k,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if len(s.MAPeriods) == 0 {
		s.MAPeriods = []int{5, 10, 20, 60}
	}
	if len(s.RSIPeriods) == 0 {
		s.RSIPeriods = []int{6, 12, 24}
	}
	if s.MACD.Fast <= 0 {
		s.MACD.Fast = 12
	}
	if s.MACD.Slow <= 0 {
		s.MACD.Slow = 26
	}
	if s.MACD.Signal <= 0 {
		s.MACD.Signal = 9
	}
	if s.KDJ.N <= 0 {
		s.KDJ.N = 9
	}
	if s.KDJ.M1 <= 0 {
		s.KDJ.M1 = 3
	}
	if s.KDJ.M2 <= 0 {
		s.KDJ.M2 = 3
	}
	if s.BOLL.N <= 0 {
		s.BOLL.N = 20
	}
	if s.BOLL.K <= 0 {
		s.BOLL.K = 2
	}
	return s
}

// Closes extracts close prices as float64 for talib.
func Closes(bars []kline.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// Compute calculates the indicators in set. Every line has len(bars)
// entries, nil during warm-up.
func Compute(bars []kline.Bar, set kline.IndicatorSet, cfg Settings) (kline.IndicatorData, error) {
	var out kline.IndicatorData
	if len(bars) == 0 {
		return out, fmt.Errorf("no bars")
	}
	cfg = cfg.withDefaults()
	closes := Closes(bars)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
	}
	if set.Has(kline.IndicatorMA) {
		out.MA = make(map[string]kline.Line, len(cfg.MAPeriods))
		for _, p := range cfg.MAPeriods {
			out.MA[fmt.Sprintf("ma%d", p)] = MA(closes, p)
		}
	}
	if set.Has(kline.IndicatorMACD) {
		m := MACD(closes, cfg.MACD)
		out.MACD = &m
	}
	if set.Has(kline.IndicatorKDJ) {
		k := KDJ(highs, lows, closes, cfg.KDJ)
		out.KDJ = &k
	}
	if set.Has(kline.IndicatorRSI) {
		out.RSI = make(map[string]kline.Line, len(cfg.RSIPeriods))
		for _, p := range cfg.RSIPeriods {
			out.RSI[fmt.Sprintf("rsi%d", p)] = RSI(closes, p)
		}
	}
	if set.Has(kline.IndicatorBOLL) {
		b := BOLL(closes, cfg.BOLL)
		out.BOLL = &b
	}
	return out, nil
}

// MA is a simple moving average.
func MA(closes []float64, period int) kline.Line {
	if period <= 0 || len(closes) < period {
		return make(kline.Line, len(closes))
	}
	return toLine(talib.Sma(closes, period), period-1, 2)
}

// MACD uses the domestic convention: bar = (DIF - DEA) * 2.
func MACD(closes []float64, cfg MACDSettings) kline.MACDData {
	cfg = Settings{MACD: cfg}.withDefaults().MACD
	lookback := cfg.Slow - 1 + cfg.Signal - 1
	n := len(closes)
	if n <= lookback {
		return kline.MACDData{DIF: make(kline.Line, n), DEA: make(kline.Line, n), MACD: make(kline.Line, n)}
	}
	dif, dea, hist := talib.Macd(closes, cfg.Fast, cfg.Slow, cfg.Signal)
	for i := range hist {
		hist[i] *= 2
	}
	return kline.MACDData{
		DIF:  toLine(dif, lookback, 4),
		DEA:  toLine(dea, lookback, 4),
		MACD: toLine(hist, lookback, 4),
	}
}

// KDJ: RSV over N bars (50 during warm-up), K and D smoothed with weight 1/M1 and 1/M2.
func KDJ(highs, lows, closes []float64, cfg KDJSettings) kline.KDJData {
	cfg = Settings{KDJ: cfg}.withDefaults().KDJ
	n := len(closes)
	out := kline.KDJData{K: make(kline.Line, n), D: make(kline.Line, n), J: make(kline.Line, n)}
	if n == 0 {
		return out
	}
	var hh, ll []float64
	if n >= cfg.N {
		hh = talib.Max(highs, cfg.N)
		ll = talib.Min(lows, cfg.N)
	}
	var k, d float64
	for i := 0; i < n; i++ {
		rsv := 50.0
		if i >= cfg.N-1 && hh != nil {
			if span := hh[i] - ll[i]; span > 0 {
				rsv = (closes[i] - ll[i]) / span * 100
			}
		}
		if i == 0 {
			k, d = rsv, rsv
		} else {
			k = (rsv + float64(cfg.M1-1)*k) / float64(cfg.M1)
			d = (k + float64(cfg.M2-1)*d) / float64(cfg.M2)
		}
		out.K[i] = ptr(round(k, 2))
		out.D[i] = ptr(round(d, 2))
		out.J[i] = ptr(round(3*k-2*d, 2))
	}
	return out
}

func RSI(closes []float64, period int) kline.Line {
	if period <= 0 || len(closes) <= period {
		return make(kline.Line, len(closes))
	}
	return toLine(talib.Rsi(closes, period), period, 2)
}

func BOLL(closes []float64, cfg BOLLSettings) kline.BOLLData {
	cfg = Settings{BOLL: cfg}.withDefaults().BOLL
	n := len(closes)
	if n < cfg.N {
		return kline.BOLLData{Mid: make(kline.Line, n), Upper: make(kline.Line, n), Lower: make(kline.Line, n)}
	}
	upper, mid, lower := talib.BBands(closes, cfg.N, cfg.K, cfg.K, talib.SMA)
	return kline.BOLLData{
		Mid:   toLine(mid, cfg.N-1, 2),
		Upper: toLine(upper, cfg.N-1, 2),
		Lower: toLine(lower, cfg.N-1, 2),
	}
}

// toLine nils out talib's zero-filled warm-up and any non-finite value.
func toLine(src []float64, lookback, places int) kline.Line {
	out := make(kline.Line, len(src))
	for i, v := range src {
		if i < lookback || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = ptr(round(v, places))
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Value returns the value at i, ok false for gaps.
func Value(l kline.Line, i int) (float64, bool) {
	if i < 0 || i >= len(l) || l[i] == nil {
		return 0, false
	}
	return *l[i], true
}
