package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ServiceAccount issues per-mailbox tokens from a Google service account key
// with domain-wide delegation.
type ServiceAccount struct {
	keyJSON     []byte
	clientEmail string
	scopes      []string
	opts        Options
}

// NewServiceAccount parses a service account key.
func NewServiceAccount(keyJSON []byte, scopes []string, opts Options) (*ServiceAccount, error) {
	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(keyJSON, &key); err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("invalid service account key: client_email is missing")
	}
	if key.PrivateKey == "" {
		return nil, fmt.Errorf("invalid service account key: private_key is missing")
	}
	// Validate the key once instead of on every mailbox.
	if _, err := google.JWTConfigFromJSON(keyJSON, scopes...); err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}

	return &ServiceAccount{
		keyJSON:     keyJSON,
		clientEmail: key.ClientEmail,
		scopes:      scopes,
		opts:        opts,
	}, nil
}

// LoadServiceAccount reads a service account key file.
func LoadServiceAccount(path string, scopes []string, opts Options) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return NewServiceAccount(data, scopes, opts)
}

// ClientEmail returns the service account identity.
func (s *ServiceAccount) ClientEmail() string {
	return s.clientEmail
}

// TokenSource returns a token source impersonating subject.
func (s *ServiceAccount) TokenSource(ctx context.Context, subject string) (oauth2.TokenSource, error) {
	conf, err := google.JWTConfigFromJSON(s.keyJSON, s.scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	conf.Subject = subject

	key := CacheKey("google", s.clientEmail, strings.ToLower(subject), strings.Join(s.scopes, " "))
	return NewCachingTokenSource(conf.TokenSource(ctx), key, s.opts), nil
}
