package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds CLI settings resolved from defaults, an optional config file,
// FORMSTATE_* environment variables and flags, in increasing precedence.
type Config struct {
	Output      string `mapstructure:"output"`
	LogLevel    string `mapstructure:"log_level"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	Sanitize    bool   `mapstructure:"sanitize"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Output:      "json",
		LogLevel:    "info",
		MaxAttempts: 3,
		Sanitize:    true,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("output", defaults.Output)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("max_attempts", defaults.MaxAttempts)
	v.SetDefault("sanitize", defaults.Sanitize)

	v.SetEnvPrefix("formstate")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	switch cfg.Output {
	case "json", "yaml":
	default:
		return Config{}, fmt.Errorf("unsupported output format %q", cfg.Output)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "formstate",
		Level:  lvl,
	}), nil
}
