package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.APIConfig{BaseURL: srv.URL + "/api", TimeoutSeconds: 5})
	require.NoError(t, err)
	return c
}

func TestGetDecodesEnvelopeData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stocks/date-range", r.URL.Path)
		assert.Equal(t, "600000.SH", r.URL.Query().Get("code"))
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"start_date":"2010-01-04","end_date":"2024-12-31"}}`))
	})
	var out struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	err := c.Get(context.Background(), "/stocks/date-range", url.Values{"code": {"600000.SH"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "2010-01-04", out.StartDate)
	assert.Equal(t, "2024-12-31", out.EndDate)
}

func TestEnvelopeErrorBecomesApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"message":"invalid code","data":null}`))
	})
	err := c.Get(context.Background(), "/kline/data", nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindApplication, KindOf(err))
	assert.Equal(t, "invalid code", UserMessage(err))
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, apiErr.Code)
}

func TestServerErrorMessagePriority(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusNotFound, `{"detail":"stock 999999.SH not found","message":"ignored"}`, "stock 999999.SH not found"},
		{"detail validation array", http.StatusUnprocessableEntity, `{"detail":[{"loc":["query","code"],"msg":"field required"}]}`, "field required"},
		{"message fallback", http.StatusBadGateway, `{"message":"upstream down"}`, "upstream down"},
		{"generic", http.StatusServiceUnavailable, `<html>oops</html>`, "server error (503)"},
		{"empty body", http.StatusInternalServerError, ``, "server error (500)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			err := c.Get(context.Background(), "/kline/data", nil, nil)
			require.Error(t, err)
			assert.Equal(t, KindServer, KindOf(err))
			assert.Equal(t, tc.want, UserMessage(err))
		})
	}
}

func TestNetworkErrorWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(config.APIConfig{BaseURL: base, TimeoutSeconds: 2})
	require.NoError(t, err)
	err = c.Get(context.Background(), "/stocks/list", nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "network unreachable", UserMessage(err))
	assert.False(t, IsCanceled(err))
}

func TestConfigErrorForMalformedSetup(t *testing.T) {
	c, err := NewClient(config.APIConfig{BaseURL: "not a url"})
	require.NoError(t, err)
	err = c.Get(context.Background(), "/stocks/list", nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.Equal(t, "request configuration error", UserMessage(err))

	ok := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	err = ok.Post(context.Background(), "/backtest/run", map[string]any{"bad": make(chan int)}, nil)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestCanceledRequestIsNotAnAPIError(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Get(ctx, "/kline/data", nil, nil) }()
	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCanceled)
		assert.True(t, IsCanceled(err))
		assert.Equal(t, Kind(0), KindOf(err))
	case <-time.After(3 * time.Second):
		t.Fatal("canceled request did not return")
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"ok":true}}`))
	})
	var out struct{ OK bool `json:"ok"` }
	require.NoError(t, c.Post(context.Background(), "backtest/run", map[string]any{"code": "600000.SH"}, &out))
	assert.True(t, out.OK)
}
