package backtest

import "sync"

// ConfigPatch merges into the page config; nil fields are left untouched.
type ConfigPatch struct {
	Code           *string
	StartDate      *string
	EndDate        *string
	StrategyID     *string
	StrategyParams map[string]any
	InitialCapital *float64
	PositionRatio  *float64
}

// StateSnapshot is a copy of the backtest page state.
type StateSnapshot struct {
	Strategies []StrategyDefinition
	Config     Request
	Result     *Result
	Loading    bool
	Err        error
}

// State is the backtest page state. Reset keeps the loaded strategy list.
type State struct {
	mu   sync.Mutex
	snap StateSnapshot
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

func defaultConfig() Request {
	return Request{
		InitialCapital: DefaultInitialCapital,
		PositionRatio:  DefaultPositionRatio,
		StrategyParams: map[string]any{},
	}
}

func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = StateSnapshot{Strategies: s.snap.Strategies, Config: defaultConfig()}
}

func (s *State) SetStrategies(defs []StrategyDefinition) {
	s.mu.Lock()
	s.snap.Strategies = append([]StrategyDefinition(nil), defs...)
	s.mu.Unlock()
}

// SetConfig merges patch. Switching strategy drops params of the previous one
// unless the patch brings its own.
func (s *State) SetConfig(patch ConfigPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.snap.Config
	if patch.Code != nil {
		c.Code = *patch.Code
	}
	if patch.StartDate != nil {
		c.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		c.EndDate = *patch.EndDate
	}
	if patch.StrategyID != nil && *patch.StrategyID != c.StrategyID {
		c.StrategyID = *patch.StrategyID
		if patch.StrategyParams == nil {
			c.StrategyParams = map[string]any{}
		}
	}
	if patch.StrategyParams != nil {
		c.StrategyParams = cloneParams(patch.StrategyParams)
	}
	if patch.InitialCapital != nil {
		c.InitialCapital = *patch.InitialCapital
	}
	if patch.PositionRatio != nil {
		c.PositionRatio = *patch.PositionRatio
	}
}

func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	s.snap.Loading = loading
	if loading {
		s.snap.Err = nil
	}
	s.mu.Unlock()
}

func (s *State) SetResult(res *Result) {
	s.mu.Lock()
	s.snap.Result = res
	s.snap.Loading = false
	s.snap.Err = nil
	s.mu.Unlock()
}

func (s *State) SetError(err error) {
	s.mu.Lock()
	s.snap.Err = err
	s.snap.Loading = false
	s.mu.Unlock()
}

func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Strategies = append([]StrategyDefinition(nil), s.snap.Strategies...)
	out.Config.StrategyParams = cloneParams(s.snap.Config.StrategyParams)
	return out
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
