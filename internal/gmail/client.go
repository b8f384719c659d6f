package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/scanner"
)

// Scopes are the OAuth scopes the service account must be granted.
var Scopes = []string{gmail.GmailReadonlyScope}

// TokenSourceFunc returns a token source acting as subject.
type TokenSourceFunc func(ctx context.Context, subject string) (oauth2.TokenSource, error)

// Options configures a Client.
type Options struct {
	// Endpoint overrides the Gmail API base URL.
	Endpoint string

	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client reads Workspace mailboxes through the Gmail API.
type Client struct {
	tokens   TokenSourceFunc
	endpoint string
	limiter  *rate.Limiter
	metrics  *instrumentation.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	services map[string]*gmail.UsersService
	labels   map[string]map[string]string
	pending  map[string][]scanner.Attachment
}

// NewClient returns a Client that impersonates mailbox owners with tokens
// from tokens.
func NewClient(tokens TokenSourceFunc, opts Options) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("gmail: token source is required")
	}
	c := &Client{
		tokens:   tokens,
		endpoint: opts.Endpoint,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		services: make(map[string]*gmail.UsersService),
		labels:   make(map[string]map[string]string),
		pending:  make(map[string][]scanner.Attachment),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceGmail)
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Name implements mailbox.Source.
func (c *Client) Name() string {
	return instrumentation.ServiceGmail
}

// users returns the Users service impersonating address, creating it on
// first use.
func (c *Client) users(ctx context.Context, address string) (*gmail.UsersService, error) {
	key := strings.ToLower(address)

	c.mu.Lock()
	svc, ok := c.services[key]
	c.mu.Unlock()
	if ok {
		return svc, nil
	}

	// Token refreshes outlive the request that created the service.
	base := context.WithoutCancel(ctx)
	ts, err := c.tokens(base, address)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(auth.HTTPClient(base, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	s, err := gmail.NewService(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c.mu.Lock()
	c.services[key] = s.Users
	c.mu.Unlock()
	return s.Users, nil
}

// call runs one API request with rate limiting, a span and metrics.
func (c *Client) call(ctx context.Context, operation string, fn func() error) (err error) {
	ctx, span := instrumentation.StartMailAPISpan(ctx, instrumentation.ServiceGmail, operation)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		c.metrics.RecordMailAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := fn(); err != nil {
		return fmt.Errorf("gmail %s: %w", operation, err)
	}
	return nil
}

// isStatus reports whether err is a Gmail API error with the given HTTP code.
func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

func isNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}
