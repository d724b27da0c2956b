package app

import (
	"github.com/google/wire"

	"klinedash/internal/apiclient"
	"klinedash/internal/backtest"
	"klinedash/internal/config"
	"klinedash/internal/dashboard"
	"klinedash/internal/kline"
	"klinedash/internal/stock"
	"klinedash/internal/store"
)

// clientFactory builds the API client; tests swap it through WithClient.
type clientFactory func(config.APIConfig) (*apiclient.Client, error)

// archiveOpener opens the run archive on first use.
type archiveOpener func(string) (store.RunArchive, error)

var appSet = wire.NewSet(
	provideClient,
	provideFetcher,
	provideCatalog,
	provideBacktestService,
	provideKLinePage,
	provideComparePage,
	provideApp,
)

func provideClient(cfg *config.Config, newClient clientFactory) (*apiclient.Client, error) {
	return newClient(cfg.API)
}

func provideFetcher(c *apiclient.Client) *kline.Fetcher {
	return kline.NewFetcher(c)
}

func provideCatalog(c *apiclient.Client) *stock.Catalog {
	return stock.NewCatalog(c)
}

func provideBacktestService(c *apiclient.Client) *backtest.Service {
	return backtest.NewService(c)
}

func provideKLinePage(cfg *config.Config, f *kline.Fetcher) *dashboard.KLinePage {
	return dashboard.NewKLinePage(kline.NewQuery(f), cfg.Kline)
}

func provideComparePage(cfg *config.Config, f *kline.Fetcher) *dashboard.ComparePage {
	return dashboard.NewComparePage(f, cfg.Compare)
}

func provideApp(
	cfg *config.Config,
	client *apiclient.Client,
	catalog *stock.Catalog,
	fetcher *kline.Fetcher,
	svc *backtest.Service,
	kp *dashboard.KLinePage,
	cp *dashboard.ComparePage,
	open archiveOpener,
) *App {
	return &App{
		cfg:       cfg,
		Client:    client,
		Catalog:   catalog,
		Fetcher:   fetcher,
		Backtest:  svc,
		KLine:     kp,
		Compare:   cp,
		archiveFn: open,
		Summary:   newStartupSummary(cfg),
	}
}
