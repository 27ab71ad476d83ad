package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CHATDESK_ADDR
const EnvPrefix = "CHATDESK"

// RateLimitConfig throttles sends per client
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second" yaml:"per_second"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// Config holds the runtime settings for the server and the terminal chat
type Config struct {
	Addr             string          `mapstructure:"addr" yaml:"addr"`
	Server           string          `mapstructure:"server" yaml:"server"`
	ReplyDelay       time.Duration   `mapstructure:"reply_delay" yaml:"reply_delay"`
	ReplyTimeout     time.Duration   `mapstructure:"reply_timeout" yaml:"reply_timeout"`
	MaxMessageLength int             `mapstructure:"max_message_length" yaml:"max_message_length"`
	MaxNameLength    int             `mapstructure:"max_name_length" yaml:"max_name_length"`
	DefaultModel     string          `mapstructure:"default_model" yaml:"default_model"`
	Models           []ModelInfo     `mapstructure:"models" yaml:"models"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	ExportDir        string          `mapstructure:"export_dir" yaml:"export_dir"`
}

// NewViper returns a viper instance with defaults and environment binding applied
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("server", "http://127.0.0.1:8080")
	v.SetDefault("reply_delay", time.Second)
	v.SetDefault("reply_timeout", 30*time.Second)
	v.SetDefault("max_message_length", DefaultMaxMessageLength)
	v.SetDefault("max_name_length", DefaultMaxNameLength)
	v.SetDefault("default_model", "chatgpt")
	v.SetDefault("rate_limit.per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("export_dir", defaultExportDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the optional config file at path and unmarshals the result.
// With an empty path, chatdesk.yaml is looked up in the working directory and
// in ~/.chatdesk; a missing file is not an error then.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chatdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.chatdesk")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		LogDebug("Loaded config from %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Models) == 0 {
		cfg.Models = append([]ModelInfo(nil), DefaultModels...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for values the components cannot work with
func (c *Config) Validate() error {
	if c.MaxMessageLength <= 0 {
		return &ValidationError{Field: "max_message_length", Reason: "must be positive"}
	}
	if c.MaxNameLength <= 0 {
		return &ValidationError{Field: "max_name_length", Reason: "must be positive"}
	}
	if c.ReplyDelay < 0 || c.ReplyTimeout < 0 {
		return &ValidationError{Field: "reply_delay", Reason: "durations must not be negative"}
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		return &ValidationError{Field: "rate_limit", Reason: "must not be negative"}
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return &ValidationError{Field: "models", Reason: "model id must not be empty"}
		}
		if seen[m.ID] {
			return &ValidationError{Field: "models", Reason: fmt.Sprintf("duplicate model %q", m.ID)}
		}
		seen[m.ID] = true
	}
	if c.DefaultModel != "" && !seen[c.DefaultModel] {
		return &ValidationError{Field: "default_model", Reason: fmt.Sprintf("%q is not in the model list", c.DefaultModel)}
	}
	return nil
}

// DispatcherConfig derives the dispatcher settings
func (c *Config) DispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxLength:    c.MaxMessageLength,
		ReplyTimeout: c.ReplyTimeout,
		DefaultModel: c.DefaultModel,
		Models:       ModelIDs(c.Models),
	}
}

func defaultExportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.chatdesk/exports"
	}
	return "exports"
}
