package kline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AdjType is the price adjustment mode.
type AdjType string

const (
	AdjNone   AdjType = "none"
	AdjBefore AdjType = "before" // forward-adjusted
	AdjAfter  AdjType = "after"  // backward-adjusted
)

// ParseAdjType accepts the wire values plus the descriptive aliases.
func ParseAdjType(s string) (AdjType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AdjNone, nil
	case "before", "forward", "qfq":
		return AdjBefore, nil
	case "after", "backward", "hfq":
		return AdjAfter, nil
	default:
		return "", fmt.Errorf("unknown adj type %q", s)
	}
}

// Period is the bar interval.
type Period string

const (
	Period1Min  Period = "1min"
	Period5Min  Period = "5min"
	Period15Min Period = "15min"
	Period30Min Period = "30min"
	Period60Min Period = "60min"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every supported period in selector order.
var Periods = []Period{
	Period1Min, Period5Min, Period15Min, Period30Min, Period60Min,
	PeriodDay, PeriodWeek, PeriodMonth, PeriodYear,
}

const minuteMarker = "min"

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PeriodDay, nil
	}
	for _, known := range Periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// IsMinute reports whether p routes to the intraday endpoint.
func (p Period) IsMinute() bool {
	return strings.Contains(string(p), minuteMarker)
}

// Minutes returns the bar interval of a minute period, 0 otherwise.
func (p Period) Minutes() int {
	if !p.IsMinute() {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(string(p), minuteMarker))
	if err != nil {
		return 0
	}
	return n
}

// Indicator is an overlay computed by the backend.
type Indicator string

const (
	IndicatorMA   Indicator = "ma"
	IndicatorMACD Indicator = "macd"
	IndicatorKDJ  Indicator = "kdj"
	IndicatorRSI  Indicator = "rsi"
	IndicatorBOLL Indicator = "boll"
)

var indicatorOrder = []Indicator{IndicatorMA, IndicatorMACD, IndicatorKDJ, IndicatorRSI, IndicatorBOLL}

// IndicatorSet is an unordered selection; Join renders it in canonical order.
type IndicatorSet map[Indicator]struct{}

// ParseIndicators accepts values like "ma,MACD, rsi".
func ParseIndicators(values ...string) (IndicatorSet, error) {
	set := make(IndicatorSet)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			ind := Indicator(part)
			if !ind.valid() {
				return nil, fmt.Errorf("unknown indicator %q", part)
			}
			set[ind] = struct{}{}
		}
	}
	return set, nil
}

func (i Indicator) valid() bool {
	for _, known := range indicatorOrder {
		if i == known {
			return true
		}
	}
	return false
}

func (s IndicatorSet) Has(i Indicator) bool {
	_, ok := s[i]
	return ok
}

func (s IndicatorSet) List() []Indicator {
	out := make([]Indicator, 0, len(s))
	for _, ind := range indicatorOrder {
		if s.Has(ind) {
			out = append(out, ind)
		}
	}
	return out
}

// Join returns the comma-joined wire form, "" when empty.
func (s IndicatorSet) Join() string {
	list := s.List()
	parts := make([]string, len(list))
	for i, ind := range list {
		parts[i] = string(ind)
	}
	return strings.Join(parts, ",")
}

func (s IndicatorSet) Clone() IndicatorSet {
	out := make(IndicatorSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

var (
	ErrCodeRequired      = errors.New("stock code is required")
	ErrTradeDateRequired = errors.New("trade date is required for minute periods")
	ErrDateRangeRequired = errors.New("start and end date are required")
	ErrDateRangeReversed = errors.New("start date is after end date")
)

// QueryParams lists every parameter of one K-line query.
type QueryParams struct {
	Code       string
	StartDate  string
	EndDate    string
	AdjType    AdjType
	Period     Period
	TradeDate  string
	Indicators IndicatorSet
}

// DefaultQueryParams: adj none, period day, no trade date, no indicators.
func DefaultQueryParams() QueryParams {
	return QueryParams{
		AdjType:    AdjNone,
		Period:     PeriodDay,
		Indicators: IndicatorSet{},
	}
}

// Validate checks the parameters needed by the endpoint Period routes to.
func (q QueryParams) Validate() error {
	if strings.TrimSpace(q.Code) == "" {
		return ErrCodeRequired
	}
	if q.Period.IsMinute() {
		if q.Period.Minutes() <= 0 {
			return fmt.Errorf("invalid minute period %q", q.Period)
		}
		if strings.TrimSpace(q.TradeDate) == "" {
			return ErrTradeDateRequired
		}
		return nil
	}
	if q.StartDate == "" || q.EndDate == "" {
		return ErrDateRangeRequired
	}
	if q.StartDate > q.EndDate {
		return ErrDateRangeReversed
	}
	return nil
}
