package kline

import (
	"context"
	"errors"

	"klinedash/internal/apiclient"
)

// Query is the request entry of one surface (the main K-line view). Every
// call goes through the Slot and supersedes the surface's in-flight request.
type Query struct {
	slot    Slot
	fetcher *Fetcher
}

func NewQuery(f *Fetcher) *Query {
	return &Query{fetcher: f}
}

// Fetch supersedes any in-flight call and fetches q. The returned token must
// be used to commit the result; a superseded call returns apiclient.ErrCanceled.
func (q *Query) Fetch(ctx context.Context, params QueryParams) (Token, Result, error) {
	tok, reqCtx := q.slot.Issue(ctx)
	res, err := q.Do(reqCtx, tok, params)
	return tok, res, err
}

// Issue supersedes the in-flight call and returns the token for a Do call.
// Pages use the split form to mark loading between the two steps.
func (q *Query) Issue(ctx context.Context) (Token, context.Context) {
	return q.slot.Issue(ctx)
}

// Do fetches params under tok. reqCtx must come from the same Issue.
func (q *Query) Do(reqCtx context.Context, tok Token, params QueryParams) (Result, error) {
	res, err := q.fetcher.Fetch(reqCtx, params)
	if err != nil {
		if !tok.Current() || errors.Is(reqCtx.Err(), context.Canceled) {
			return Result{}, apiclient.ErrCanceled
		}
		return Result{}, err
	}
	if !tok.Current() {
		return Result{}, apiclient.ErrCanceled
	}
	return res, nil
}

// Cancel supersedes the in-flight call, if any.
func (q *Query) Cancel() { q.slot.Cancel() }

// Slot exposes the slot for page controllers that issue outside Fetch.
func (q *Query) Slot() *Slot { return &q.slot }
