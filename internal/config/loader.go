package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix      = "WIRECHAT"
	envConfigDir   = "WIRECHAT_CONFIG_DEFAULT_PATH"
	configFileName = "config.yaml"
)

// Load resolves the relay configuration and the file it came from.
// Later sources win: defaults, the YAML file, WIRECHAT_* variables. Flags
// are applied by the caller with UpdateFrom followed by Validate.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg := Default()
	path := resolveConfigPath(explicitPath)

	v := newViper(cfg)
	v.SetConfigFile(path)
	if err := readOrBootstrap(v, path, cfg, logger); err != nil {
		return cfg, path, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, path, nil
}

// defaultKeys lists every config key with its default, so env variables are
// picked up even for keys absent from the file.
func defaultKeys(cfg Config) map[string]any {
	return map[string]any{
		"addr":                   cfg.Addr,
		"read_header_timeout":    cfg.ReadHeaderTimeout,
		"shutdown_timeout":       cfg.ShutdownTimeout,
		"log_level":              cfg.LogLevel,
		"max_message_bytes":      cfg.MaxMessageBytes,
		"client_buffer":          cfg.ClientBuffer,
		"rate_limit_per_minute":  cfg.RateLimitPerMinute,
		"allowed_origins":        cfg.AllowedOrigins,
		"nats.url":               cfg.NATS.URL,
		"nats.subject":           cfg.NATS.Subject,
		"nats.presence_interval": cfg.NATS.PresenceInterval,
	}
}

func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaultKeys(cfg) {
		v.SetDefault(key, value)
	}

	// nats.url is read from WIRECHAT_NATS_URL.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readOrBootstrap reads the config file, writing one with defaults first when
// it does not exist. A file that cannot be written only costs a warning.
func readOrBootstrap(v *viper.Viper, path string, defaults Config, logger *zerolog.Logger) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}

	if err := writeDefaultConfig(path, defaults); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("config file missing and could not be created, using defaults")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")

	if err := v.ReadInConfig(); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("re-read of default config failed, using defaults")
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if dir := os.Getenv(envConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, configFileName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return configFileName
	}
	return filepath.Join(cwd, configFileName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
