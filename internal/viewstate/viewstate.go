// Package viewstate holds the page-scoped state of the K-line view.
package viewstate

import (
	"sync"

	"klinedash/internal/kline"
)

// Snapshot is a read-only copy of State.
type Snapshot struct {
	Code       string
	Stock      kline.StockInfo
	Series     *kline.BarSeries
	Indicators kline.IndicatorPayload
	Loading    bool
	Err        error
	Params     kline.QueryParams
}

// State is owned by one page. Every field has a single producer: user
// actions go through the Set* methods, fetch completion through Apply*.
type State struct {
	mu   sync.Mutex
	snap Snapshot
}

func New() *State {
	s := &State{}
	s.Reset()
	return s
}

func defaults() Snapshot {
	return Snapshot{Params: kline.DefaultQueryParams()}
}

// Reset restores documented defaults. Calling it twice is the same as once.
func (s *State) Reset() {
	s.mu.Lock()
	s.snap = defaults()
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Params.Indicators = s.snap.Params.Indicators.Clone()
	if s.snap.Series != nil {
		series := *s.snap.Series
		series.Bars = append([]kline.Bar(nil), s.snap.Series.Bars...)
		out.Series = &series
	}
	if s.snap.Indicators != nil {
		out.Indicators = append(kline.IndicatorPayload(nil), s.snap.Indicators...)
	}
	return out
}

// Params returns the current query parameters.
func (s *State) Params() kline.QueryParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.snap.Params
	p.Indicators = p.Indicators.Clone()
	return p
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.mu.Unlock()
}

// SelectStock switches the selected code. The series of the previous stock
// is kept until the next fetch lands.
func (s *State) SelectStock(info kline.StockInfo) {
	s.update(func(v *Snapshot) {
		v.Code = info.Code
		v.Stock = info
		v.Params.Code = info.Code
	})
}

func (s *State) SetPeriod(p kline.Period) {
	s.update(func(v *Snapshot) { v.Params.Period = p })
}

func (s *State) SetAdjType(a kline.AdjType) {
	s.update(func(v *Snapshot) { v.Params.AdjType = a })
}

func (s *State) SetDateRange(start, end string) {
	s.update(func(v *Snapshot) {
		v.Params.StartDate = start
		v.Params.EndDate = end
	})
}

func (s *State) SetTradeDate(d string) {
	s.update(func(v *Snapshot) { v.Params.TradeDate = d })
}

func (s *State) SetIndicators(set kline.IndicatorSet) {
	s.update(func(v *Snapshot) { v.Params.Indicators = set.Clone() })
}

// SetLoading marks a fetch as started and clears the previous error.
func (s *State) SetLoading(loading bool) {
	s.update(func(v *Snapshot) {
		v.Loading = loading
		if loading {
			v.Err = nil
		}
	})
}

// ApplyResult stores a landed fetch. Callers invoke it inside Token.Commit.
func (s *State) ApplyResult(res kline.Result) {
	s.update(func(v *Snapshot) {
		series := res.Series
		v.Series = &series
		v.Indicators = res.Indicators
		if res.Stock.Code != "" {
			v.Stock = res.Stock
		}
		v.Loading = false
		v.Err = nil
	})
}

// ApplyError stores a failed fetch. Callers invoke it inside Token.Commit.
func (s *State) ApplyError(err error) {
	s.update(func(v *Snapshot) {
		v.Loading = false
		v.Err = err
	})
}
