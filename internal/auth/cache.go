package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/oauth2"
)

// ErrNoCachedToken is returned by FileCache.Load when no token is stored.
var ErrNoCachedToken = errors.New("no cached token")

// FileCache stores tokens as JSON files, one per key, readable only by the
// current user.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at dir. An empty dir selects
// DefaultCacheDir.
func NewFileCache(dir string) *FileCache {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return &FileCache{dir: dir}
}

// DefaultCacheDir returns the per-user cache directory for inboxscan.
func DefaultCacheDir() string {
	return filepath.Join(userCacheDir(), "inboxscan")
}

// CacheKey derives a file-safe key from the identity parts of a credential.
// Secrets must not be passed.
func CacheKey(kind string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return kind + "-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Path returns the file backing key.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.dir, key+".token")
}

// Load reads the token stored for key.
func (c *FileCache) Load(key string) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCachedToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token cache %s: %w", c.Path(key), err)
	}
	return &tok, nil
}

// Save writes tok for key, replacing any previous token.
func (c *FileCache) Save(key string, tok *oauth2.Token) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token stored for key. Missing tokens are not an error.
func (c *FileCache) Delete(key string) error {
	if err := os.Remove(c.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
