// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".dreamscape/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
	// DefaultDBPath is the default SQLite database location under the home directory
	DefaultDBPath = ".dreamscape/db/dreamscape.db"
	// DefaultArchivePath is the default archive repository under the home directory
	DefaultArchivePath = ".dreamscape/archive"
)

// Load reads configuration from ~/.dreamscape/configs/config.json
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(homeDir, DefaultConfigDir))

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file, defaults only
	}

	return decode(v)
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	homeDir, _ := os.UserHomeDir()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper, homeDir string) {
	defaults := defaultConfig(homeDir)

	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.transport", defaults.Server.Transport)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("server.tls.enabled", false)

	v.SetDefault("database.type", defaults.Database.Type)
	v.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)

	v.SetDefault("journal.timezone", "")
	v.SetDefault("journal.seed_on_start", defaults.Journal.SeedOnStart)
	v.SetDefault("journal.prune_links_on_delete", defaults.Journal.PruneLinksOnDelete)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.path", defaults.Archive.Path)
	v.SetDefault("archive.interval_minutes", defaults.Archive.IntervalMinutes)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.development", false)
}

// Validate checks a configuration assembled outside the loaders (flags, env overrides)
func Validate(cfg *Config) error {
	return validate(cfg)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if !isValidType(cfg.Database.Type, ValidDatabaseTypes()) {
		return fmt.Errorf("database.type must be 'sqlite', 'postgres' or 'memory', got '%s'", cfg.Database.Type)
	}
	if cfg.Database.Type == DatabaseSQLite && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == DatabasePostgres && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}

	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if !isValidType(cfg.Server.Transport, ValidTransports()) {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got '%s'", cfg.Server.Transport)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when tls is enabled")
	}

	if _, err := cfg.Journal.Location(); err != nil {
		return fmt.Errorf("journal.timezone: %w", err)
	}

	if cfg.Archive.Enabled {
		if cfg.Archive.Path == "" {
			return fmt.Errorf("archive.path is required when the archive is enabled")
		}
		if cfg.Archive.IntervalMinutes < 1 {
			return fmt.Errorf("archive.interval_minutes must be at least 1, got %d", cfg.Archive.IntervalMinutes)
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if !isValidType(cfg.Logging.Level, ValidLogLevels()) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got '%s'", cfg.Logging.Level)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return defaultConfig(homeDir)
}

func defaultConfig(homeDir string) *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8080,
			Transport:   TransportStdio,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Type:       DatabaseSQLite,
			SQLitePath: filepath.Join(homeDir, DefaultDBPath),
		},
		Journal: JournalConfig{
			SeedOnStart:        true,
			PruneLinksOnDelete: true,
		},
		Archive: ArchiveConfig{
			Path:            filepath.Join(homeDir, DefaultArchivePath),
			IntervalMinutes: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
