// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TLSConfig holds HTTPS listener settings
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string    `mapstructure:"host"`
	Port        int       `mapstructure:"port"`
	Transport   string    `mapstructure:"transport"` // "stdio" or "http"
	CORSOrigins []string  `mapstructure:"cors_origins"`
	TLS         TLSConfig `mapstructure:"tls"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type        string `mapstructure:"type"` // "sqlite", "postgres" or "memory"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// JournalConfig holds journal behaviour settings
type JournalConfig struct {
	Timezone           string `mapstructure:"timezone"` // IANA name; empty means the host zone
	SeedOnStart        bool   `mapstructure:"seed_on_start"`
	PruneLinksOnDelete bool   `mapstructure:"prune_links_on_delete"`
}

// Location resolves the configured timezone used for calendar days
func (j JournalConfig) Location() (*time.Location, error) {
	if j.Timezone == "" || j.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", j.Timezone, err)
	}
	return loc, nil
}

// ArchiveConfig holds git archive settings
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	RemoteURL       string `mapstructure:"remote_url"`
	PushToken       string `mapstructure:"push_token"`
}

// Interval returns the snapshot interval
func (a ArchiveConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMinutes) * time.Minute
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

// Database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

// Server transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ValidDatabaseTypes returns all valid database type values
func ValidDatabaseTypes() []string {
	return []string{DatabaseSQLite, DatabasePostgres, DatabaseMemory}
}

// ValidTransports returns all valid transport values
func ValidTransports() []string {
	return []string{TransportStdio, TransportHTTP}
}

// ValidLogLevels returns all valid logging levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// isValidType is a generic helper to check if a type is in a list of valid types
func isValidType(aType string, validTypes []string) bool {
	for _, valid := range validTypes {
		if aType == valid {
			return true
		}
	}
	return false
}
