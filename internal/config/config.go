package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error disabled off"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=0"`
	ClientBuffer       int           `mapstructure:"client_buffer" yaml:"client_buffer" validate:"gt=0"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" validate:"gte=0"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins" validate:"dive,required"`
	NATS               NATSConfig    `mapstructure:"nats" yaml:"nats"`
}

// NATSConfig enables the cross-process bus when URL is set.
type NATSConfig struct {
	URL              string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Subject          string        `mapstructure:"subject" yaml:"subject" validate:"natssubject"`
	PresenceInterval time.Duration `mapstructure:"presence_interval" yaml:"presence_interval" validate:"gt=0"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MaxMessageBytes:    64 << 10,
		ClientBuffer:       64,
		RateLimitPerMinute: 0,
		AllowedOrigins:     []string{"*"},
		NATS: NATSConfig{
			Subject:          "wirechat.relay",
			PresenceInterval: 5 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = strings.ToLower(other.LogLevel)
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if other.NATS.PresenceInterval != 0 {
		c.NATS.PresenceInterval = other.NATS.PresenceInterval
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("natssubject", func(fl validator.FieldLevel) bool {
		return validSubject(fl.Field().String())
	})
	return v
}

// validSubject accepts a literal NATS subject: dot-separated, non-empty
// tokens, no wildcards, no whitespace.
func validSubject(subject string) bool {
	if subject == "" {
		return false
	}
	for _, token := range strings.Split(subject, ".") {
		if token == "" || token == "*" || token == ">" {
			return false
		}
		if strings.ContainsAny(token, " \t\r\n*>") {
			return false
		}
	}
	return true
}

// Validate reports the first invalid field, named by its config key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("invalid %s: %q fails %s", configKey(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag())
	}
	return err
}

// configKey turns "Config.NATS.PresenceInterval" into "nats.presence_interval".
func configKey(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		path = namespace
	}
	parts := strings.Split(path, ".")
	for i, part := range parts {
		parts[i] = snake(part)
	}
	return strings.Join(parts, ".")
}

func snake(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
		prevLower = !upper
	}
	return b.String()
}
