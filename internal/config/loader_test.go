package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.ShutdownTimeout != def.ShutdownTimeout || cfg.NATS.Subject != def.NATS.Subject {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9090\"\nshutdown_timeout: 2s\nclient_buffer: 16\nnats:\n  url: nats://example:4222\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIRECHAT_LOG_LEVEL", "debug")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.ClientBuffer != 16 {
		t.Errorf("client_buffer = %d", cfg.ClientBuffer)
	}
	if cfg.NATS.URL != "nats://example:4222" || cfg.NATS.Subject != "wirechat.relay" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want env override", cfg.LogLevel)
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", NATS: NATSConfig{URL: "nats://x"}})

	if cfg.Addr != ":7000" || cfg.NATS.URL != "nats://x" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.NATS.Subject != "wirechat.relay" {
		t.Fatalf("zero overrides must not clobber defaults: %+v", cfg)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{name: "negative frame limit", mutate: func(c *Config) { c.MaxMessageBytes = -1 }, key: "max_message_bytes"},
		{name: "zero client buffer", mutate: func(c *Config) { c.ClientBuffer = 0 }, key: "client_buffer"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = -5 }, key: "rate_limit_per_minute"},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "chatty" }, key: "log_level"},
		{name: "empty addr", mutate: func(c *Config) { c.Addr = "" }, key: "addr"},
		{name: "nats url without scheme", mutate: func(c *Config) { c.NATS.URL = "not a url" }, key: "nats.url"},
		{name: "wildcard subject", mutate: func(c *Config) { c.NATS.Subject = "wirechat.*" }, key: "nats.subject"},
		{name: "empty subject token", mutate: func(c *Config) { c.NATS.Subject = "wirechat..relay" }, key: "nats.subject"},
		{name: "subject with spaces", mutate: func(c *Config) { c.NATS.Subject = "wire chat" }, key: "nats.subject"},
		{name: "zero presence interval", mutate: func(c *Config) { c.NATS.PresenceInterval = 0 }, key: "nats.presence_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_message_bytes: -10\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil || !strings.Contains(err.Error(), "max_message_bytes") {
		t.Fatalf("expected max_message_bytes error, got %v", err)
	}
}

func TestLoadNormalizesLogLevelAndReadsPresenceInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: WARN\nnats:\n  presence_interval: 750ms\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %q, want warn", cfg.LogLevel)
	}
	if cfg.NATS.PresenceInterval != 750*time.Millisecond {
		t.Errorf("nats.presence_interval = %v", cfg.NATS.PresenceInterval)
	}
}
