// ABOUTME: Configuration loading and parsing for sportzone
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DevJWTSecret is the signing secret used when none is configured.
const DevJWTSecret = "sportzone-dev-secret-change-me"

// Config represents the complete sportzone configuration
type Config struct {
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Messenger MessengerConfig `yaml:"messenger" toml:"messenger"`
	AI        AIConfig        `yaml:"ai" toml:"ai"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// StoreConfig selects the key-value backend
type StoreConfig struct {
	Driver   string         `yaml:"driver" toml:"driver"` // memory, sqlite, sqlite3, pebble, dynamodb
	Path     string         `yaml:"path" toml:"path"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb" toml:"dynamodb"`
}

// DynamoDBConfig holds the DynamoDB table settings
type DynamoDBConfig struct {
	Table    string `yaml:"table" toml:"table"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"` // e.g. http://localhost:8000 for DynamoDB Local
}

// AuthConfig holds session configuration
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" toml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"-" toml:"-"`

	SessionTTLRaw string `yaml:"session_ttl" toml:"session_ttl"`
}

// MessengerConfig tunes the direct messenger
type MessengerConfig struct {
	ReplyDelay    time.Duration `yaml:"-" toml:"-"`
	EditWindow    time.Duration `yaml:"-" toml:"-"`
	AutoReplyText string        `yaml:"auto_reply_text" toml:"auto_reply_text"`

	// Raw string values for unmarshaling
	ReplyDelayRaw string `yaml:"reply_delay" toml:"reply_delay"`
	EditWindowRaw string `yaml:"edit_window" toml:"edit_window"`
}

// AIConfig holds the generative API settings
type AIConfig struct {
	APIKey            string        `yaml:"api_key" toml:"api_key"`
	BaseURL           string        `yaml:"base_url" toml:"base_url"`
	Model             string        `yaml:"model" toml:"model"`
	RequestsPerMinute int           `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"-" toml:"-"`
	CacheTTL          time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw  string `yaml:"timeout" toml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl" toml:"cache_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   defaultDataPath(),
		},
		Auth: AuthConfig{
			JWTSecret:     DevJWTSecret,
			SessionTTLRaw: "0s",
		},
		Messenger: MessengerConfig{
			ReplyDelayRaw: "1.5s",
			EditWindowRaw: "60s",
		},
		AI: AIConfig{
			BaseURL:           "https://generativelanguage.googleapis.com",
			Model:             "gemini-2.5-flash",
			RequestsPerMinute: 15,
			TimeoutRaw:        "30s",
			CacheTTLRaw:       "10m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
	// Defaults always parse
	_ = parseDurations(cfg)
	return cfg
}

func defaultDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sportzone.db"
	}
	return filepath.Join(dir, "sportzone", "sportzone.db")
}

// FindPath returns the first configuration file that exists, checking
// SPORTZONE_CONFIG, the working directory and the user config directory.
// It returns "" when there is none.
func FindPath() string {
	if p := os.Getenv("SPORTZONE_CONFIG"); p != "" {
		return p
	}
	candidates := []string{"sportzone.yaml", "sportzone.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(dir, "sportzone", "config.yaml"),
			filepath.Join(dir, "sportzone", "config.toml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads a configuration file from the given path on top of Default().
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// envPattern matches ${VAR_NAME}
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

var drivers = map[string]bool{"memory": true, "sqlite": true, "sqlite3": true, "pebble": true, "dynamodb": true}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !drivers[c.Store.Driver] {
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, sqlite3, pebble, dynamodb", c.Store.Driver)
	}
	switch c.Store.Driver {
	case "sqlite", "sqlite3", "pebble":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case "dynamodb":
		if c.Store.DynamoDB.Table == "" {
			return errors.New("store.dynamodb.table is required for the dynamodb driver")
		}
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.SessionTTL < 0 {
		return errors.New("auth.session_ttl must not be negative")
	}

	if c.Messenger.ReplyDelay < 0 {
		return errors.New("messenger.reply_delay must not be negative")
	}
	if c.Messenger.EditWindow <= 0 {
		return errors.New("messenger.edit_window must be positive")
	}

	if c.AI.RequestsPerMinute < 0 {
		return errors.New("ai.requests_per_minute must not be negative")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.session_ttl", cfg.Auth.SessionTTLRaw, &cfg.Auth.SessionTTL},
		{"messenger.reply_delay", cfg.Messenger.ReplyDelayRaw, &cfg.Messenger.ReplyDelay},
		{"messenger.edit_window", cfg.Messenger.EditWindowRaw, &cfg.Messenger.EditWindow},
		{"ai.timeout", cfg.AI.TimeoutRaw, &cfg.AI.Timeout},
		{"ai.cache_ttl", cfg.AI.CacheTTLRaw, &cfg.AI.CacheTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
