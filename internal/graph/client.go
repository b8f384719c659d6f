package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
)

// DefaultEndpoint is the users collection of Graph v1.0.
const DefaultEndpoint = "https://graph.microsoft.com/v1.0/users"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// APIError is a non-2xx Graph response.
type APIError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph %s: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("graph %s: HTTP %d: %s: %s", e.Operation, e.StatusCode, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	// Endpoint is the users collection URL. Empty selects DefaultEndpoint.
	Endpoint string

	// FullBody requests the complete plain-text body instead of the
	// 255-character bodyPreview.
	FullBody bool

	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client talks to Microsoft Graph on behalf of the application.
type Client struct {
	http     *http.Client
	endpoint string
	fullBody bool
	limiter  *rate.Limiter
	metrics  *instrumentation.Metrics
	logger   *slog.Logger

	mu          sync.Mutex
	folderNames map[string]string
}

// NewClient returns a Client sending requests through httpClient, which must
// add the Authorization header.
func NewClient(httpClient *http.Client, opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid graph endpoint %q", endpoint)
	}

	c := &Client{
		http:        httpClient,
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		fullBody:    opts.FullBody,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		folderNames: make(map[string]string),
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceGraph)
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Name implements mailbox.Source.
func (c *Client) Name() string {
	return instrumentation.ServiceGraph
}

// userURL builds <endpoint>/<id>/<path...>.
func (c *Client) userURL(id string, path ...string) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	b.WriteByte('/')
	b.WriteString(url.PathEscape(id))
	for _, p := range path {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// get issues a GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, operation, rawURL string, header http.Header, out any) (err error) {
	ctx, span := instrumentation.StartMailAPISpan(ctx, instrumentation.ServiceGraph, operation)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		c.metrics.RecordMailAPIOperation(ctx, instrumentation.ServiceGraph, operation, status, time.Since(start))
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("graph %s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("graph %s: decode response: %w", operation, err)
	}
	return nil
}

func decodeError(operation string, resp *http.Response) error {
	apiErr := &APIError{Operation: operation, StatusCode: resp.StatusCode}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

// page is the envelope of every Graph collection response.
type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// foreachPage fetches rawURL and every page linked from it, calling fn for
// each item. An error from fn stops the walk.
func foreachPage[T any](ctx context.Context, c *Client, operation, rawURL string, header http.Header, fn func(T) error) error {
	seen := make(map[string]bool)
	for rawURL != "" {
		if seen[rawURL] {
			return fmt.Errorf("graph %s: pagination loop at %s", operation, rawURL)
		}
		seen[rawURL] = true

		var p page[T]
		if err := c.get(ctx, operation, rawURL, header, &p); err != nil {
			return err
		}
		for _, item := range p.Value {
			if err := fn(item); err != nil {
				return err
			}
		}
		rawURL = p.NextLink
	}
	return nil
}

// IsNotFound reports whether err is a 404 from Graph.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
