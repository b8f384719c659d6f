package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceAccountKey(t *testing.T, tokenURI string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "test",
		"private_key_id": "kid",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "scanner@test.iam.gserviceaccount.com",
		"client_id":      "1",
		"token_uri":      tokenURI,
	})
	require.NoError(t, err)
	return data
}

func TestServiceAccount_TokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))
		assert.NotEmpty(t, r.PostForm.Get("assertion"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	sa, err := NewServiceAccount(serviceAccountKey(t, srv.URL), []string{"https://www.googleapis.com/auth/gmail.readonly"}, testOptions(NewFileCache(t.TempDir())))
	require.NoError(t, err)
	assert.Equal(t, "scanner@test.iam.gserviceaccount.com", sa.ClientEmail())

	ts, err := sa.TokenSource(context.Background(), "jane@example.com")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "google-token", tok.AccessToken)
}

func TestNewServiceAccount_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not json", "{"},
		{"no client email", `{"type":"service_account"}`},
		{"no private key", `{"type":"service_account","client_email":"a@b.c","token_uri":"https://x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServiceAccount([]byte(tt.key), nil, Options{})
			assert.Error(t, err)
		})
	}
}

func TestLoadServiceAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, serviceAccountKey(t, "https://oauth2.example.com/token"), 0600))

	sa, err := LoadServiceAccount(path, nil, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, sa.ClientEmail())

	_, err = LoadServiceAccount(filepath.Join(t.TempDir(), "missing.json"), nil, Options{})
	assert.Error(t, err)
}
