package app

import (
	"context"
	"fmt"

	"klinedash/internal/apiclient"
	"klinedash/internal/config"
	"klinedash/internal/store"
	"klinedash/internal/store/gormstore"
)

type AppBuilder struct {
	cfg *config.Config

	clientFn  clientFactory
	archiveFn archiveOpener
}

type AppBuilderOption func(*AppBuilder)

// WithArchive overrides how the run archive is opened.
func WithArchive(fn func(string) (store.RunArchive, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.archiveFn = fn }
}

// WithClient overrides how the API client is built.
func WithClient(fn func(config.APIConfig) (*apiclient.Client, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.clientFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		clientFn:  apiclient.NewClient,
		archiveFn: openArchive,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func openArchive(path string) (store.RunArchive, error) {
	a, err := gormstore.NewArchive(path)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Build assembles the app through the wire injector. No request is made.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	a, err := injectApp(b.cfg, b.clientFn, b.archiveFn)
	if err != nil {
		return nil, fmt.Errorf("初始化 API 客户端失败: %w", err)
	}
	return a, nil
}
