package kline

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Bar is one candle. Immutable once built.
type Bar struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON accepts fractional volumes ("1234.0") and truncates them.
func (b *Bar) UnmarshalJSON(data []byte) error {
	type alias Bar
	var raw struct {
		alias
		Volume json.Number `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Bar(raw.alias)
	if raw.Volume == "" {
		b.Volume = 0
		return nil
	}
	if n, err := raw.Volume.Int64(); err == nil {
		b.Volume = n
		return nil
	}
	f, err := raw.Volume.Float64()
	if err != nil {
		return fmt.Errorf("bar %s: invalid volume %q: %w", b.Date, raw.Volume, err)
	}
	b.Volume = int64(math.Trunc(f))
	return nil
}

// StockInfo is a stock code and name.
type StockInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Label renders "name (code)", falling back to the code.
func (s StockInfo) Label() string {
	if s.Name == "" {
		return s.Code
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}

// BarSeries is the ordered bars of one (code, period, adj_type). A finished
// request replaces it whole; it is never patched.
type BarSeries struct {
	Code    string  `json:"code"`
	Period  Period  `json:"period"`
	AdjType AdjType `json:"adj_type"`
	Bars    []Bar   `json:"bars"`
}

// NewBarSeries orders bars by date and drops duplicate dates, keeping the
// last occurrence, so dates are strictly increasing.
func NewBarSeries(code string, period Period, adj AdjType, bars []Bar) BarSeries {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Date == b.Date {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return BarSeries{Code: code, Period: period, AdjType: adj, Bars: out}
}

func (s BarSeries) Len() int { return len(s.Bars) }

func (s BarSeries) Empty() bool { return len(s.Bars) == 0 }

// Dates returns the bar dates in order.
func (s BarSeries) Dates() []string {
	out := make([]string, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// First and Last return the boundary dates, or "" when empty.
func (s BarSeries) First() string {
	if len(s.Bars) == 0 {
		return ""
	}
	return s.Bars[0].Date
}

func (s BarSeries) Last() string {
	if len(s.Bars) == 0 {
		return ""
	}
	return s.Bars[len(s.Bars)-1].Date
}

// Result is what a successful fetch returns.
type Result struct {
	Stock      StockInfo        `json:"stock_info"`
	Series     BarSeries        `json:"series"`
	Indicators IndicatorPayload `json:"indicators,omitempty"`
}

// envelope data for /kline/data and /kline/minute.
type klineData struct {
	StockInfo  StockInfo        `json:"stock_info"`
	Klines     []Bar            `json:"klines"`
	Count      int              `json:"count"`
	Period     string           `json:"period,omitempty"`
	Indicators IndicatorPayload `json:"indicators,omitempty"`
}
