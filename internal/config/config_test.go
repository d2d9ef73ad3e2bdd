// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
store:
  driver: "pebble"
  path: "/tmp/sportzone-data"

auth:
  jwt_secret: "s3cret"
  session_ttl: "720h"

messenger:
  reply_delay: "2s"
  edit_window: "90s"
  auto_reply_text: "Got it!"

ai:
  api_key: "key"
  model: "gemini-2.0-flash"
  timeout: "10s"
  requests_per_minute: 5
  cache_ttl: "1h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != "pebble" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "pebble")
	}
	if cfg.Store.Path != "/tmp/sportzone-data" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/sportzone-data")
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "s3cret")
	}
	if cfg.Auth.SessionTTL != 720*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want %v", cfg.Auth.SessionTTL, 720*time.Hour)
	}
	if cfg.Messenger.ReplyDelay != 2*time.Second {
		t.Errorf("Messenger.ReplyDelay = %v, want %v", cfg.Messenger.ReplyDelay, 2*time.Second)
	}
	if cfg.Messenger.EditWindow != 90*time.Second {
		t.Errorf("Messenger.EditWindow = %v, want %v", cfg.Messenger.EditWindow, 90*time.Second)
	}
	if cfg.Messenger.AutoReplyText != "Got it!" {
		t.Errorf("Messenger.AutoReplyText = %q, want %q", cfg.Messenger.AutoReplyText, "Got it!")
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("AI.Model = %q, want %q", cfg.AI.Model, "gemini-2.0-flash")
	}
	if cfg.AI.Timeout != 10*time.Second {
		t.Errorf("AI.Timeout = %v, want %v", cfg.AI.Timeout, 10*time.Second)
	}
	if cfg.AI.RequestsPerMinute != 5 {
		t.Errorf("AI.RequestsPerMinute = %d, want 5", cfg.AI.RequestsPerMinute)
	}
	if cfg.AI.CacheTTL != time.Hour {
		t.Errorf("AI.CacheTTL = %v, want %v", cfg.AI.CacheTTL, time.Hour)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[store]
driver = "dynamodb"

[store.dynamodb]
table = "sportzone"
region = "eu-central-1"
endpoint = "http://localhost:8000"

[messenger]
reply_delay = "500ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != "dynamodb" {
		t.Errorf("Store.Driver = %q, want dynamodb", cfg.Store.Driver)
	}
	if cfg.Store.DynamoDB.Table != "sportzone" {
		t.Errorf("Store.DynamoDB.Table = %q, want sportzone", cfg.Store.DynamoDB.Table)
	}
	if cfg.Store.DynamoDB.Endpoint != "http://localhost:8000" {
		t.Errorf("Store.DynamoDB.Endpoint = %q", cfg.Store.DynamoDB.Endpoint)
	}
	if cfg.Messenger.ReplyDelay != 500*time.Millisecond {
		t.Errorf("Messenger.ReplyDelay = %v, want 500ms", cfg.Messenger.ReplyDelay)
	}
	// untouched sections keep defaults
	if cfg.Messenger.EditWindow != 60*time.Second {
		t.Errorf("Messenger.EditWindow = %v, want 60s", cfg.Messenger.EditWindow)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Store.Driver != def.Store.Driver {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, def.Store.Driver)
	}
	if cfg.Messenger.ReplyDelay != 1500*time.Millisecond {
		t.Errorf("Messenger.ReplyDelay = %v, want 1.5s", cfg.Messenger.ReplyDelay)
	}
	if cfg.AI.CacheTTL != 10*time.Minute {
		t.Errorf("AI.CacheTTL = %v, want 10m", cfg.AI.CacheTTL)
	}
	if cfg.Auth.SessionTTL != 0 {
		t.Errorf("Auth.SessionTTL = %v, want 0", cfg.Auth.SessionTTL)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SPORTZONE_KEY", "from-env")
	t.Setenv("TEST_SPORTZONE_SECRET", "jwt-from-env")

	path := writeConfig(t, "config.yaml", `
auth:
  jwt_secret: "${TEST_SPORTZONE_SECRET}"
ai:
  api_key: "${TEST_SPORTZONE_KEY}"
  base_url: "${TEST_SPORTZONE_UNSET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "from-env" {
		t.Errorf("AI.APIKey = %q, want %q", cfg.AI.APIKey, "from-env")
	}
	if cfg.Auth.JWTSecret != "jwt-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "jwt-from-env")
	}
	if cfg.AI.BaseURL != "" {
		t.Errorf("AI.BaseURL = %q, want empty for unset variable", cfg.AI.BaseURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "store: [", "parsing config file"},
		{"bad toml", "c.toml", "[store\n", "parsing config file"},
		{"bad duration", "c.yaml", "messenger:\n  reply_delay: \"soon\"\n", "messenger.reply_delay"},
		{"unknown driver", "c.yaml", "store:\n  driver: \"redis\"\n", "store.driver"},
		{"sqlite without path", "c.yaml", "store:\n  driver: \"sqlite\"\n  path: \"\"\n", "store.path"},
		{"dynamodb without table", "c.yaml", "store:\n  driver: \"dynamodb\"\n", "store.dynamodb.table"},
		{"empty secret", "c.yaml", "auth:\n  jwt_secret: \"\"\n", "auth.jwt_secret"},
		{"negative delay", "c.yaml", "messenger:\n  reply_delay: \"-1s\"\n", "messenger.reply_delay"},
		{"zero edit window", "c.yaml", "messenger:\n  edit_window: \"0s\"\n", "messenger.edit_window"},
		{"bad log format", "c.yaml", "logging:\n  format: \"xml\"\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file", err)
	}
}

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestFindPath_Env(t *testing.T) {
	t.Setenv("SPORTZONE_CONFIG", "/etc/sportzone.toml")
	if got := FindPath(); got != "/etc/sportzone.toml" {
		t.Errorf("FindPath() = %q, want /etc/sportzone.toml", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SZ_A", "alpha")
	got := expandEnvVars("x=${SZ_A} y=${SZ_MISSING} z=$SZ_A")
	want := "x=alpha y= z=$SZ_A"
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}
