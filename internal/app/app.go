package app

import (
	"context"
	"fmt"
	"sync"

	"klinedash/internal/apiclient"
	"klinedash/internal/backtest"
	"klinedash/internal/config"
	"klinedash/internal/dashboard"
	"klinedash/internal/kline"
	"klinedash/internal/logger"
	"klinedash/internal/stock"
	"klinedash/internal/store"
	"klinedash/internal/transport/http/mockapi"
)

// App holds one session's dependencies: the API client and the page controllers.
type App struct {
	cfg *config.Config

	Client   *apiclient.Client
	Catalog  *stock.Catalog
	Fetcher  *kline.Fetcher
	Backtest *backtest.Service

	KLine   *dashboard.KLinePage
	Compare *dashboard.ComparePage

	archiveFn   func(string) (store.RunArchive, error)
	archiveOnce sync.Once
	archive     store.RunArchive
	archiveErr  error

	backtestOnce sync.Once
	backtestPage *dashboard.BacktestPage

	Summary *StartupSummary
}

// NewApp builds the app from cfg without making any request.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg).Build(context.Background())
}

func (a *App) Config() *config.Config { return a.cfg }

// Archive opens the run archive on first use.
func (a *App) Archive() (store.RunArchive, error) {
	a.archiveOnce.Do(func() {
		if a.archiveFn == nil {
			a.archiveErr = fmt.Errorf("archive not configured")
			return
		}
		a.archive, a.archiveErr = a.archiveFn(a.cfg.Backtest.ArchivePath)
	})
	return a.archive, a.archiveErr
}

// BacktestPage builds the backtest page. With archive true finished runs are
// saved; an archive that fails to open only disables saving.
func (a *App) BacktestPage(archive bool) *dashboard.BacktestPage {
	a.backtestOnce.Do(func() {
		var arch store.RunArchive
		if archive {
			var err error
			if arch, err = a.Archive(); err != nil {
				logger.Warnf("回测归档不可用: %v", err)
				arch = nil
			}
		}
		a.backtestPage = dashboard.NewBacktestPage(a.Backtest, arch)
	})
	return a.backtestPage
}

// RunMockServer serves the mock backend until ctx is canceled.
func (a *App) RunMockServer(ctx context.Context) error {
	if a.Summary != nil {
		a.Summary.Print()
	}
	srv := mockapi.NewServer(mockapi.Config{Addr: a.cfg.Mock.Addr, Seed: a.cfg.Mock.Seed})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("mock api server error: %w", err)
	}
	return nil
}

// Close releases the archive if it was opened.
func (a *App) Close() error {
	if a == nil || a.archive == nil {
		return nil
	}
	return a.archive.Close()
}
