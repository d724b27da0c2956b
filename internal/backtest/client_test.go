package backtest

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"klinedash/internal/apiclient"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Get(ctx context.Context, path string, query url.Values, out any) error {
	args := m.Called(path)
	return decodeInto(args.String(0), out, args.Error(1))
}

func (m *mockAPI) Post(ctx context.Context, path string, payload any, out any) error {
	args := m.Called(path, payload)
	return decodeInto(args.String(0), out, args.Error(1))
}

func decodeInto(body string, out any, err error) error {
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), out)
}

func TestServiceStrategies(t *testing.T) {
	raw, err := json.Marshal(Definitions())
	require.NoError(t, err)
	api := &mockAPI{}
	api.On("Get", pathStrategies).Return(string(raw), nil)

	defs, err := NewService(api).Strategies(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 5)
	assert.Equal(t, "ma_cross", defs[0].ID)
	assert.Equal(t, 5.0, defs[0].Params[0].Default)
	require.NotNil(t, defs[0].Params[0].Max)
	assert.Equal(t, 60.0, *defs[0].Params[0].Max)
}

func TestServiceRunSendsPreparedRequest(t *testing.T) {
	api := &mockAPI{}
	api.On("Post", pathRun, mock.MatchedBy(func(r Request) bool {
		return r.Code == "600000.SH" &&
			r.InitialCapital == DefaultInitialCapital &&
			r.PositionRatio == DefaultPositionRatio &&
			r.StrategyParams["fast_period"] == 7.0 &&
			r.StrategyParams["slow_period"] == 20.0
	})).Return(`{"stock_code":"600000.SH","metrics":{"total_return":12.5},"trades":[]}`, nil)

	def, err := Lookup(Definitions(), "ma_cross")
	require.NoError(t, err)
	res, err := NewService(api).Run(context.Background(), Request{
		Code: "600000.SH", StartDate: "2024-01-01", EndDate: "2024-06-30",
		StrategyID: "ma_cross", StrategyParams: map[string]any{"fast_period": "7"},
	}, &def)
	require.NoError(t, err)
	assert.Equal(t, 12.5, res.Metrics.TotalReturn)
	api.AssertExpectations(t)
}

func TestServiceRunRejectsLocally(t *testing.T) {
	api := &mockAPI{}
	svc := NewService(api)
	_, err := svc.Run(context.Background(), Request{StrategyID: "ma_cross"}, nil)
	assert.Equal(t, apiclient.KindConfig, apiclient.KindOf(err))
	assert.ErrorIs(t, err, ErrCodeRequired)

	def, _ := Lookup(Definitions(), "ma_cross")
	_, err = svc.Run(context.Background(), Request{
		Code: "A", StartDate: "2024-01-01", EndDate: "2024-02-01", StrategyID: "ma_cross",
		StrategyParams: map[string]any{"fast_period": 1000},
	}, &def)
	assert.Equal(t, apiclient.KindConfig, apiclient.KindOf(err))
	api.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
}
