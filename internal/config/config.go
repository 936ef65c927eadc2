// Package config loads querykit settings from an optional YAML file and
// QUERYKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of recognized environment variables.
// QUERYKIT_LOG_LEVEL sets log.level.
const EnvPrefix = "QUERYKIT_"

// Config is the resolved configuration.
type Config struct {
	// Dialect is the SQL dialect used for rendering: mysql or sqlite.
	Dialect string `mapstructure:"dialect"`
	// Schema is the metamodel path: a CUE package directory, a .cue file
	// or a YAML file.
	Schema string `mapstructure:"schema"`
	// Database is the SQLite database used by the run command.
	Database string `mapstructure:"database"`
	Log      Log    `mapstructure:"log"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Dialect: "mysql",
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when non-empty) and then the environment. Environment
// values win over the file, and both win over Default.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("dialect", def.Dialect)
	v.SetDefault("schema", def.Schema)
	v.SetDefault("database", def.Database)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s not found", path)
			}
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// QUERYKIT_LOG_LEVEL -> log.level
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		prop := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "."))
		v.Set(prop, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Dialect) {
	case "mysql", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("dialect: unknown dialect %q (valid: mysql, sqlite)", c.Dialect))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (valid: text, json)", c.Log.Format))
	}
	return errors.Join(errs...)
}
