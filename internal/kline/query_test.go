package kline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/apiclient"
	"klinedash/internal/config"
)

func TestQuerySupersededCallReturnsCanceled(t *testing.T) {
	slowStarted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "SLOW" {
			close(slowStarted)
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(sampleKlines))
	}))
	defer srv.Close()
	client, err := apiclient.NewClient(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	require.NoError(t, err)
	q := NewQuery(NewFetcher(client))

	slow := DefaultQueryParams()
	slow.Code = "SLOW"
	slow.StartDate, slow.EndDate = "2024-01-01", "2024-01-31"
	fast := slow
	fast.Code = "600000.SH"

	type outcome struct {
		tok Token
		err error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		tok, _, err := q.Fetch(context.Background(), slow)
		slowDone <- outcome{tok, err}
	}()
	<-slowStarted

	fastTok, res, err := q.Fetch(context.Background(), fast)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Series.Len())

	select {
	case out := <-slowDone:
		assert.ErrorIs(t, out.err, apiclient.ErrCanceled)
		assert.False(t, out.tok.Current())
		assert.False(t, out.tok.Commit(nil))
	case <-time.After(3 * time.Second):
		t.Fatal("superseded request was not aborted")
	}
	assert.True(t, fastTok.Commit(nil))
}
