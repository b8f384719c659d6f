package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
)

// ErrTokenAcquisition wraps every failure to obtain a token from the
// identity provider.
var ErrTokenAcquisition = errors.New("failed to acquire access token")

// Options configures the token sources built by this package.
type Options struct {
	// Cache persists tokens between runs. Nil keeps tokens in memory only.
	Cache *FileCache

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// cachingTokenSource consults the file cache once, then falls back to the
// identity provider and stores what it gets.
type cachingTokenSource struct {
	base    oauth2.TokenSource
	key     string
	cache   *FileCache
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	loaded bool
}

// NewCachingTokenSource wraps base with the file cache and metrics in opts,
// and with an in-memory oauth2.ReuseTokenSource on top.
func NewCachingTokenSource(base oauth2.TokenSource, key string, opts Options) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &cachingTokenSource{
		base:    base,
		key:     key,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  opts.logger().With(logging.KeyOperation, "token"),
	})
}

// Token implements oauth2.TokenSource.
func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()

	if s.cache != nil && !s.loaded {
		s.loaded = true
		tok, err := s.cache.Load(s.key)
		switch {
		case err == nil && tok.Valid():
			s.metrics.RecordOAuthToken(ctx, instrumentation.TokenResultCache)
			s.logger.Debug("using cached token", "expiry", tok.Expiry)
			return tok, nil
		case err != nil && !errors.Is(err, ErrNoCachedToken):
			s.logger.Warn("ignoring unreadable token cache", logging.KeyError, err.Error())
		}
	}

	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthToken(ctx, instrumentation.TokenResultFailure)
		return nil, fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	s.metrics.RecordOAuthToken(ctx, instrumentation.TokenResultFetched)
	s.logger.Debug("fetched new token",
		"token", logging.SanitizeToken(tok.AccessToken),
		"expiry", tok.Expiry)

	if s.cache != nil {
		if err := s.cache.Save(s.key, tok); err != nil {
			s.logger.Warn("failed to persist token", logging.KeyError, err.Error())
		}
	}
	return tok, nil
}
