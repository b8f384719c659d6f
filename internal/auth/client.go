package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds a single API request.
const DefaultHTTPTimeout = 60 * time.Second

// HTTPClient returns an HTTP client that authorizes every request with a
// token from ts. A client stored in ctx under oauth2.HTTPClient is used as the
// base transport.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = DefaultHTTPTimeout
	return client
}
