// Package config handles the configuration directory, config.toml and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename (google backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (google backend).
	TokenFile = "token.json"

	// DefaultTimeout bounds each backend request.
	DefaultTimeout = 10 * time.Second
)

// Backends.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Environment overrides.
const (
	EnvBackend = "TASKSYNC_BACKEND"
	EnvBaseURL = "TASKSYNC_BASE_URL"
	EnvToken   = "TASKSYNC_TOKEN"
	EnvNATSURL = "TASKSYNC_NATS_URL"
)

var (
	// ErrUnknownBackend is returned for a backend other than rest or google.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrMissingBaseURL is returned when the rest backend has no base URL.
	ErrMissingBaseURL = errors.New("base_url is not configured")
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the service implementation: "rest" or "google".
	Backend string

	// BaseURL is the root of the tasks REST API, e.g. http://localhost:8000/api.
	BaseURL string

	// Token is the bearer token sent to the REST API. Empty disables auth.
	Token string

	// Timeout bounds each backend request.
	Timeout time.Duration

	// NATS configures the optional notification publisher.
	NATS NATSConfig
}

// NATSConfig holds the [nats] section.
type NATSConfig struct {
	URL     string
	Subject string
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
	NATS    struct {
		URL     string `toml:"url"`
		Subject string `toml:"subject"`
	} `toml:"nats"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
// Settings start at their defaults; call Load to read config.toml.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:     dir,
		Backend: BackendREST,
		Timeout: DefaultTimeout,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads config.toml if present, then applies environment overrides.
// A missing file is not an error.
func (c *Config) Load() error {
	var fc fileConfig
	_, err := toml.DecodeFile(c.ConfigPath(), &fc)
	switch {
	case err == nil:
		if err := c.apply(fc); err != nil {
			return fmt.Errorf("%s: %w", c.ConfigPath(), err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	c.applyEnv()
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	return nil
}

func (c *Config) apply(fc fileConfig) error {
	if fc.Backend != "" {
		c.Backend = fc.Backend
	}
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.Token != "" {
		c.Token = fc.Token
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout: %q", fc.Timeout)
		}
		c.Timeout = d
	}
	if fc.NATS.URL != "" {
		c.NATS.URL = fc.NATS.URL
	}
	if fc.NATS.Subject != "" {
		c.NATS.Subject = fc.NATS.Subject
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.NATS.URL = v
	}
}

// Validate checks that the selected backend can be constructed.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		if strings.TrimSpace(c.BaseURL) == "" {
			return ErrMissingBaseURL
		}
	case BackendGoogle:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// ConfigPath returns the path to config.toml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
