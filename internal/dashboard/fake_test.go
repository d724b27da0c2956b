package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// fakeAPI 按 code 返回固定收盘价序列。gates 中的 code 会阻塞到放行。
type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	closes   map[string][]float64
	fail     map[string]error
	gates    map[string]chan struct{}
	started  chan string
	honorCtx bool
}

type call struct {
	path  string
	query url.Values
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		closes:  map[string][]float64{},
		fail:    map[string]error{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeAPI) gate(code string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[code] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values, out any) error {
	code := query.Get("code")
	f.mu.Lock()
	f.calls = append(f.calls, call{path: path, query: query})
	gate := f.gates[code]
	failErr := f.fail[code]
	closes, ok := f.closes[code]
	f.mu.Unlock()
	f.started <- code

	if gate != nil {
		if f.honorCtx {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			<-gate
		}
	}
	if failErr != nil {
		return failErr
	}
	if !ok {
		closes = []float64{10, 11, 12}
	}
	bars := make([]string, len(closes))
	for i, c := range closes {
		bars[i] = fmt.Sprintf(`{"date":"2024-01-%02d","open":%v,"close":%v,"high":%v,"low":%v,"volume":100,"amount":1000}`, i+1, c, c, c, c)
	}
	body := fmt.Sprintf(`{"stock_info":{"code":%q,"name":"name-%s"},"klines":[%s],"count":%d}`, code, code, strings.Join(bars, ","), len(closes))
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, payload any, out any) error {
	return fmt.Errorf("unexpected post %s", path)
}

func fixedClock() Clock {
	return func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local) }
}

func waitStarted(f *fakeAPI, code string) {
	for c := range f.started {
		if c == code {
			return
		}
	}
}
