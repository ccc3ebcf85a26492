package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"             validate:"required,url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required"`
}
