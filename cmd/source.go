package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/config"
	"github.com/teemow/inboxscan/internal/gmail"
	"github.com/teemow/inboxscan/internal/graph"
	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
)

// loadConfig reads .env from the working directory and then the
// configuration file.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// tokenCache returns the on-disk token cache, or nil when dir is empty.
func tokenCache(dir string) *auth.FileCache {
	if dir == "" {
		return nil
	}
	return auth.NewFileCache(dir)
}

// newSource builds the mailbox backend selected by cfg.Provider.
func newSource(ctx context.Context, cfg *config.Config, cache *auth.FileCache, metrics *instrumentation.Metrics, logger *slog.Logger) (mailbox.Source, error) {
	authOpts := auth.Options{Cache: cache, Metrics: metrics, Logger: logger}

	switch cfg.Provider {
	case config.ProviderGmail:
		sa, err := auth.LoadServiceAccount(cfg.CredentialsFile, gmail.Scopes, authOpts)
		if err != nil {
			return nil, err
		}
		logger.Debug("using gmail provider", "service_account", sa.ClientEmail())
		client, err := gmail.NewClient(sa.TokenSource, gmail.Options{
			Endpoint:          cfg.Endpoint,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Metrics:           metrics,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.ProviderGraph:
		ts, err := auth.ClientCredentials(ctx, cfg.ClientCredentials(), authOpts)
		if err != nil {
			return nil, err
		}
		client, err := graph.NewClient(auth.HTTPClient(ctx, ts), graph.Options{
			Endpoint:          cfg.Endpoint,
			FullBody:          cfg.Scanner.FullBody,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Metrics:           metrics,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("invalid provider %q", cfg.Provider)
}
