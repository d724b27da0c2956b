// Package compare turns per-stock bar series into comparable chart series.
package compare

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"klinedash/internal/kline"
	"klinedash/internal/logger"
)

// Mode selects how closes are turned into chart values.
type Mode string

const (
	ModeChange Mode = "change" // percent change from the first close
	ModePrice  Mode = "price"  // raw close
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "change", "change_pct", "pct":
		return ModeChange, nil
	case "price":
		return ModePrice, nil
	default:
		return "", fmt.Errorf("unknown compare mode %q", s)
	}
}

// ServerMode is the name /compare/data uses for m.
func (m Mode) ServerMode() string {
	if m == ModePrice {
		return "price"
	}
	return "change_pct"
}

// Point is one (date, value) sample.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Series is one line of a comparison chart. Derived, never stored.
type Series struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Points []Point `json:"data"`
}

func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Input is the outcome of one per-stock fetch.
type Input struct {
	Stock  kline.StockInfo
	Series *kline.BarSeries
	Err    error
}

var hundred = decimal.NewFromInt(100)

// Normalize converts every usable input, keeping input order. Failed inputs,
// empty series and, in change mode, a zero base close are skipped.
func Normalize(inputs []Input, mode Mode) []Series {
	out := make([]Series, 0, len(inputs))
	for _, in := range inputs {
		switch {
		case in.Err != nil:
			logger.Warnf("对比: %s 数据获取失败: %v", in.Stock.Label(), in.Err)
			continue
		case in.Series == nil || in.Series.Empty():
			logger.Warnf("对比: %s 数据为空", in.Stock.Label())
			continue
		}
		points, ok := normalizeBars(in.Series.Bars, mode)
		if !ok {
			logger.Warnf("对比: %s 首根收盘价为 0，无法计算涨跌幅", in.Stock.Label())
			continue
		}
		code := in.Stock.Code
		if code == "" {
			code = in.Series.Code
		}
		out = append(out, Series{Code: code, Name: in.Stock.Name, Points: points})
		logger.Infof("对比: %s 数据已处理 - %d 条", in.Stock.Label(), len(points))
	}
	return out
}

func normalizeBars(bars []kline.Bar, mode Mode) ([]Point, bool) {
	points := make([]Point, len(bars))
	if mode == ModePrice {
		for i, b := range bars {
			points[i] = Point{Date: b.Date, Value: b.Close.InexactFloat64()}
		}
		return points, true
	}
	base := bars[0].Close
	if base.IsZero() {
		return nil, false
	}
	for i, b := range bars {
		pct := b.Close.Sub(base).Div(base).Mul(hundred)
		points[i] = Point{Date: b.Date, Value: pct.InexactFloat64()}
	}
	return points, true
}

// Axis returns the x axis of a comparison chart: the dates of the first
// series. Series with other date sets are not resampled, so their values
// line up by index only.
func Axis(series []Series) []string {
	if len(series) == 0 {
		return nil
	}
	out := make([]string, len(series[0].Points))
	for i, p := range series[0].Points {
		out[i] = p.Date
	}
	return out
}

// Aligned reports whether every series shares the first series' dates.
func Aligned(series []Series) bool {
	if len(series) < 2 {
		return true
	}
	axis := Axis(series)
	for _, s := range series[1:] {
		if len(s.Points) != len(axis) {
			return false
		}
		for i, p := range s.Points {
			if p.Date != axis[i] {
				return false
			}
		}
	}
	return true
}
