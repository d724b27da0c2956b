package kline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssueSupersedesPreviousToken(t *testing.T) {
	var s Slot
	first, firstCtx := s.Issue(context.Background())
	assert.True(t, first.Current())

	second, secondCtx := s.Issue(context.Background())
	assert.False(t, first.Current())
	assert.True(t, second.Current())
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
	assert.NoError(t, secondCtx.Err())

	applied := ""
	assert.False(t, first.Commit(func() { applied = "first" }))
	assert.True(t, second.Commit(func() { applied = "second" }))
	assert.Equal(t, "second", applied)
}

func TestCommitLandsOnce(t *testing.T) {
	var s Slot
	tok, ctx := s.Issue(context.Background())
	count := 0
	assert.True(t, tok.Commit(func() { count++ }))
	assert.False(t, tok.Commit(func() { count++ }))
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "context is released after commit")
}

func TestCancelInvalidatesOutstandingToken(t *testing.T) {
	var s Slot
	tok, ctx := s.Issue(context.Background())
	s.Cancel()
	assert.False(t, tok.Current())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, tok.Commit(nil))
	assert.Equal(t, uint64(2), s.Generation())
}

func TestZeroTokenNeverCommits(t *testing.T) {
	var tok Token
	assert.False(t, tok.Current())
	assert.False(t, tok.Commit(func() { t.Fatal("must not run") }))
}

func TestConcurrentIssueLandsAtMostOneResult(t *testing.T) {
	var s Slot
	const n = 50
	tokens := make([]Token, n)
	for i := range tokens {
		tokens[i], _ = s.Issue(context.Background())
	}
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		landed []int
	)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i].Commit(func() {
				mu.Lock()
				landed = append(landed, i)
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []int{n - 1}, landed)
}
