package backtest

import (
	"context"
	"net/url"

	"klinedash/internal/apiclient"
	"klinedash/internal/logger"
)

const (
	pathStrategies = "/backtest/strategies"
	pathRun        = "/backtest/run"
)

// API is the transport the service needs; *apiclient.Client satisfies it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, payload any, out any) error
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) Strategies(ctx context.Context) ([]StrategyDefinition, error) {
	var defs []StrategyDefinition
	if err := s.api.Get(ctx, pathStrategies, nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Run validates req locally and posts it. Params are validated against def
// when def is non-nil.
func (s *Service) Run(ctx context.Context, req Request, def *StrategyDefinition) (Result, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return Result{}, apiclient.ConfigError(pathRun, err)
	}
	if def != nil {
		params, err := PrepareParams(*def, req.StrategyParams)
		if err != nil {
			return Result{}, apiclient.ConfigError(pathRun, err)
		}
		req.StrategyParams = params
	}
	logger.Info("开始回测", "code", req.Code, "strategy", req.StrategyID, "start", req.StartDate, "end", req.EndDate)
	var res Result
	if err := s.api.Post(ctx, pathRun, req, &res); err != nil {
		return Result{}, err
	}
	logger.Successf("回测完成: 总收益率 %.2f%%, 交易 %d 笔", res.Metrics.TotalReturn, len(res.Trades))
	return res, nil
}
