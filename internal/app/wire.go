//go:build wireinject

package app

import (
	"github.com/google/wire"

	"klinedash/internal/config"
)

func injectApp(cfg *config.Config, newClient clientFactory, open archiveOpener) (*App, error) {
	wire.Build(appSet)
	return nil, nil
}
