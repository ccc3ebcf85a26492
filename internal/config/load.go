package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// WARPDB_DATABASE_URL maps to database.url.
const envPrefix = "WARPDB"

// Load reads configuration from an optional warpdb.yaml file and from
// environment variables. Environment variables take precedence over values
// from the config file. Returns a populated Config struct or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.connect_timeout", "5s")

	v.SetConfigName("warpdb")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind keys explicitly so env-only configuration works without a file.
	for _, key := range []string{"server.log_level", "database.url", "database.connect_timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
