package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// tokenServer fakes the authority's /oauth2/v2.0/token endpoint.
func tokenServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/tenant/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, DefaultGraphScope, r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "graph-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testOptions(cache *FileCache) Options {
	return Options{
		Cache:  cache,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClientCredentialsConfig_Validate(t *testing.T) {
	valid := ClientCredentialsConfig{Authority: "https://login.example.com/tenant", ClientID: "id", Secret: "s"}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "https://login.example.com/tenant/oauth2/v2.0/token", valid.TokenURL())

	trailing := valid
	trailing.Authority += "/"
	assert.Equal(t, valid.TokenURL(), trailing.TokenURL())

	tests := []struct {
		name   string
		mutate func(*ClientCredentialsConfig)
	}{
		{"missing authority", func(c *ClientCredentialsConfig) { c.Authority = "" }},
		{"relative authority", func(c *ClientCredentialsConfig) { c.Authority = "login/tenant" }},
		{"missing client id", func(c *ClientCredentialsConfig) { c.ClientID = "" }},
		{"missing secret", func(c *ClientCredentialsConfig) { c.Secret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestClientCredentials_FetchesAndCaches(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK)
	cache := NewFileCache(t.TempDir())
	cfg := ClientCredentialsConfig{Authority: srv.URL + "/tenant", ClientID: "client-id", Secret: "s3cret"}

	ts, err := ClientCredentials(context.Background(), cfg, testOptions(cache))
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "graph-token", tok.AccessToken)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "valid token is reused in memory")

	// A second process finds the token on disk.
	ts2, err := ClientCredentials(context.Background(), cfg, testOptions(cache))
	require.NoError(t, err)
	tok2, err := ts2.Token()
	require.NoError(t, err)
	assert.Equal(t, "graph-token", tok2.AccessToken)
	assert.Equal(t, int32(1), calls.Load(), "cached token is used silently")
}

func TestClientCredentials_ExpiredCacheRefetches(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK)
	cache := NewFileCache(t.TempDir())
	cfg := ClientCredentialsConfig{Authority: srv.URL + "/tenant", ClientID: "client-id", Secret: "s3cret"}

	key := CacheKey("graph", cfg.Authority, cfg.ClientID, DefaultGraphScope)
	require.NoError(t, cache.Save(key, &oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	}))

	ts, err := ClientCredentials(context.Background(), cfg, testOptions(cache))
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "graph-token", tok.AccessToken)
	assert.Equal(t, int32(1), calls.Load())

	stored, err := cache.Load(key)
	require.NoError(t, err)
	assert.Equal(t, "graph-token", stored.AccessToken)
}

func TestClientCredentials_Failure(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusUnauthorized)
	cfg := ClientCredentialsConfig{Authority: srv.URL + "/tenant", ClientID: "client-id", Secret: "s3cret"}

	ts, err := ClientCredentials(context.Background(), cfg, testOptions(nil))
	require.NoError(t, err)

	_, err = ts.Token()
	assert.ErrorIs(t, err, ErrTokenAcquisition)
}

func TestClientCredentials_InvalidConfig(t *testing.T) {
	_, err := ClientCredentials(context.Background(), ClientCredentialsConfig{}, testOptions(nil))
	assert.Error(t, err)
}

func TestHTTPClient_AddsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := HTTPClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}))
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer abc", got)
	assert.Equal(t, DefaultHTTPTimeout, client.Timeout)
}
