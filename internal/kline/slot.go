package kline

import (
	"context"
	"sync"
)

// Slot keeps at most one in-flight request per surface. Issue cancels the
// previous one, and a superseded result or error never reaches shared state.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	landed uint64
	cancel context.CancelFunc
}

// Token identifies one issued request.
type Token struct {
	slot *Slot
	gen  uint64
}

// Issue supersedes the outstanding request, if any, and returns a token plus
// a context that is canceled when the token is superseded.
func (s *Slot) Issue(parent context.Context) (Token, context.Context) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	tok := Token{slot: s, gen: s.gen}
	s.mu.Unlock()
	return tok, ctx
}

// Cancel supersedes the outstanding request without issuing a new one.
func (s *Slot) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.mu.Unlock()
}

// Generation returns the number of tokens issued or canceled so far.
func (s *Slot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Current reports whether t is still the newest token of its slot.
func (t Token) Current() bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.slot.gen == t.gen
}

// Commit runs apply only while t is current and nothing has landed for it
// yet. The check and apply happen under the slot lock, so a concurrent Issue
// cannot interleave. After a successful commit the token's context is released.
func (t Token) Commit(apply func()) bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	if t.slot.gen != t.gen || t.slot.landed == t.gen {
		return false
	}
	t.slot.landed = t.gen
	if apply != nil {
		apply()
	}
	if t.slot.cancel != nil {
		t.slot.cancel()
		t.slot.cancel = nil
	}
	return true
}
