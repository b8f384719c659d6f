package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultGraphScope requests the application permissions granted to the app
// registration.
const DefaultGraphScope = "https://graph.microsoft.com/.default"

// ClientCredentialsConfig describes an Azure AD app registration.
type ClientCredentialsConfig struct {
	// Authority is the tenant authority URL,
	// e.g. https://login.microsoftonline.com/<tenant>.
	Authority string
	ClientID  string
	Secret    string
	Scopes    []string
}

// TokenURL returns the v2.0 token endpoint of the authority.
func (c ClientCredentialsConfig) TokenURL() string {
	return strings.TrimSuffix(c.Authority, "/") + "/oauth2/v2.0/token"
}

// Validate reports missing fields.
func (c ClientCredentialsConfig) Validate() error {
	if c.Authority == "" {
		return fmt.Errorf("authority is required")
	}
	if u, err := url.Parse(c.Authority); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("authority %q is not an absolute URL", c.Authority)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}

// ClientCredentials returns a token source for the client-credential grant.
// Tokens are taken from opts.Cache while valid and fetched from the
// authority otherwise.
func ClientCredentials(ctx context.Context, cfg ClientCredentialsConfig, opts Options) (oauth2.TokenSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultGraphScope}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		TokenURL:     cfg.TokenURL(),
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	key := CacheKey("graph", cfg.Authority, cfg.ClientID, strings.Join(scopes, " "))
	return NewCachingTokenSource(cc.TokenSource(ctx), key, opts), nil
}
