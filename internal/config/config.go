package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/graph"
	"github.com/teemow/inboxscan/internal/scanner"
)

// Providers.
const (
	ProviderGraph = "graph"
	ProviderGmail = "gmail"
)

// DefaultLogDir receives the daily compliance CSV files.
const DefaultLogDir = "log"

// Environment overrides.
const (
	EnvAuthority       = "INBOXSCAN_AUTHORITY"
	EnvClientID        = "INBOXSCAN_CLIENT_ID"
	EnvClientSecret    = "INBOXSCAN_CLIENT_SECRET"
	EnvEndpoint        = "INBOXSCAN_ENDPOINT"
	EnvProvider        = "INBOXSCAN_PROVIDER"
	EnvCredentialsFile = "INBOXSCAN_CREDENTIALS_FILE"
	EnvLogDir          = "INBOXSCAN_LOG_DIR"
	EnvTempDir         = "INBOXSCAN_TEMP_DIR"
	EnvWorkers         = "INBOXSCAN_WORKERS"
)

// Config is the scanner configuration.
type Config struct {
	Authority string `json:"authority"`
	ClientID  string `json:"client_id"`
	Scope     Scopes `json:"scope"`
	Secret    string `json:"secret"`
	Endpoint  string `json:"endpoint"`

	// Provider selects the mail backend: graph (default) or gmail.
	Provider string `json:"provider,omitempty"`

	// CredentialsFile is the Google service account key used by the gmail
	// provider.
	CredentialsFile string `json:"credentials_file,omitempty"`

	// RequestsPerSecond limits API calls. Zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// LogDir receives the daily compliance CSV files.
	LogDir string `json:"log_dir,omitempty"`

	Scanner ScannerConfig `json:"scanner"`
}

// ScannerConfig tunes body and attachment scanning.
type ScannerConfig struct {
	AllowedExtensions  []string `json:"allowed_extensions,omitempty"`
	BodyPattern        string   `json:"body_pattern,omitempty"`
	AttachmentPattern  string   `json:"attachment_pattern,omitempty"`
	MaxAttachmentBytes int64    `json:"max_attachment_bytes,omitempty"`
	TempDir            string   `json:"temp_dir,omitempty"`
	Workers            int      `json:"workers,omitempty"`
	FullBody           bool     `json:"full_body,omitempty"`
}

// Scopes accepts either a JSON string or a list of strings.
type Scopes []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scopes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = strings.Fields(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("scope must be a string or a list of strings: %w", err)
	}
	*s = many
	return nil
}

// LoadEnv loads a .env file from the working directory if there is one.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the JSON configuration at path, applies defaults and
// environment overrides, resolves secrets and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	secret, err := loadSecret(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	cfg.Secret = secret

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Authority, EnvAuthority)
	setString(&c.ClientID, EnvClientID)
	setString(&c.Secret, EnvClientSecret)
	setString(&c.Endpoint, EnvEndpoint)
	setString(&c.Provider, EnvProvider)
	setString(&c.CredentialsFile, EnvCredentialsFile)
	setString(&c.LogDir, EnvLogDir)
	setString(&c.Scanner.TempDir, EnvTempDir)

	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Scanner.Workers = n
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGraph
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Endpoint == "" && c.Provider == ProviderGraph {
		c.Endpoint = graph.DefaultEndpoint
	}
	if len(c.Scope) == 0 && c.Provider == ProviderGraph {
		c.Scope = Scopes{auth.DefaultGraphScope}
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if len(c.Scanner.AllowedExtensions) == 0 {
		c.Scanner.AllowedExtensions = append([]string(nil), scanner.DefaultAllowedExtensions...)
	}
	if c.Scanner.MaxAttachmentBytes == 0 {
		c.Scanner.MaxAttachmentBytes = scanner.DefaultMaxAttachmentBytes
	}
	if c.Scanner.Workers == 0 {
		c.Scanner.Workers = 1
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGraph:
		if c.Authority == "" {
			return errors.New("authority is required")
		}
		if u, err := url.Parse(c.Authority); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("authority %q is not an absolute URL", c.Authority)
		}
		if c.ClientID == "" {
			return errors.New("client_id is required")
		}
		if c.Secret == "" {
			return fmt.Errorf("secret is required (inline, ENV=NAME, FILE=/path or %s)", EnvClientSecret)
		}
		if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint)
		}
	case ProviderGmail:
		if c.CredentialsFile == "" {
			return errors.New("credentials_file is required for the gmail provider")
		}
	default:
		return fmt.Errorf("invalid provider %q, must be one of: %s, %s", c.Provider, ProviderGraph, ProviderGmail)
	}

	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	if c.Scanner.Workers < 1 {
		return errors.New("scanner.workers must be at least 1")
	}
	if c.Scanner.MaxAttachmentBytes < 0 {
		return errors.New("scanner.max_attachment_bytes must not be negative")
	}
	for _, ext := range c.Scanner.AllowedExtensions {
		if _, ok := scanner.KindForExtension(strings.TrimPrefix(ext, ".")); !ok {
			return fmt.Errorf("scanner.allowed_extensions: %q is not a supported format", ext)
		}
	}
	if _, err := scanner.NewBodyMatcher(c.Scanner.BodyPattern); err != nil {
		return fmt.Errorf("scanner.body_pattern: %w", err)
	}
	if _, err := scanner.NewAttachmentMatcher(c.Scanner.AttachmentPattern); err != nil {
		return fmt.Errorf("scanner.attachment_pattern: %w", err)
	}
	return nil
}

// ClientCredentials returns the Graph app registration described by c.
func (c *Config) ClientCredentials() auth.ClientCredentialsConfig {
	return auth.ClientCredentialsConfig{
		Authority: c.Authority,
		ClientID:  c.ClientID,
		Secret:    c.Secret,
		Scopes:    c.Scope,
	}
}
