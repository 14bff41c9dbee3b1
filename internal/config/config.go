// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides layered application configuration via Koanf v2.
//
// Configuration is loaded from three layers (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or the default search list)
//  3. Environment variables (SERVER_PORT -> server.port, BACKUP_RETENTION_DAYS
//     -> backup.retention_days, and so on)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ogacrm/config.yaml",
	"/etc/ogacrm/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Backup   BackupConfig   `koanf:"backup"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings. The same host, port,
// and credentials are handed to the dump and restore subprocesses.
type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	SSLMode      string `koanf:"ssl_mode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// BackupConfig holds backup subsystem settings, including the scheduler
// defaults applied at startup. Runtime schedule updates are not persisted
// here; they live only in the scheduler and reset on restart.
type BackupConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Dir        string `koanf:"dir"`
	PgDumpPath string `koanf:"pg_dump_path"`
	PsqlPath   string `koanf:"psql_path"`

	ScheduleEnabled bool          `koanf:"schedule_enabled"`
	Interval        time.Duration `koanf:"interval"`
	RetentionDays   int           `koanf:"retention_days"`
	IncludeData     bool          `koanf:"include_data"`
}

// AuthConfig holds authentication settings for the REST surface.
// Mode "none" disables authentication entirely (development only).
type AuthConfig struct {
	Mode          string        `koanf:"mode"`
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "ogacrm",
			Password:     "",
			Name:         "ogacrm",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Backup: BackupConfig{
			Enabled:         true,
			Dir:             "/data/backups",
			PgDumpPath:      "pg_dump",
			PsqlPath:        "psql",
			ScheduleEnabled: false,
			Interval:        24 * time.Hour,
			RetentionDays:   30,
			IncludeData:     true,
		},
		Auth: AuthConfig{
			Mode:     "jwt",
			TokenTTL: 12 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envSections lists the configuration sections that may be set from
// environment variables. Anything else in the environment is ignored.
var envSections = map[string]bool{
	"server":   true,
	"database": true,
	"backup":   true,
	"auth":     true,
	"log":      true,
}

// envTransform maps an environment variable name to a koanf path:
// DATABASE_SSL_MODE -> database.ssl_mode. Variables whose first segment is
// not a known section are dropped.
func envTransform(key string) string {
	parts := strings.SplitN(strings.ToLower(key), "_", 2)
	if len(parts) != 2 || !envSections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exist.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks that the configuration is usable.
//
//nolint:gocyclo // Validation function with many sequential checks
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DATABASE_PORT must be between 1 and 65535, got: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DATABASE_USER is required")
	}

	if c.Backup.Enabled {
		if c.Backup.Dir == "" {
			return fmt.Errorf("BACKUP_DIR is required when backups are enabled")
		}
		if !filepath.IsAbs(c.Backup.Dir) {
			return fmt.Errorf("BACKUP_DIR must be an absolute path, got: %s", c.Backup.Dir)
		}
		if c.Backup.Interval < time.Minute {
			return fmt.Errorf("BACKUP_INTERVAL must be at least 1 minute, got: %s", c.Backup.Interval)
		}
		if c.Backup.RetentionDays < 1 {
			return fmt.Errorf("BACKUP_RETENTION_DAYS must be at least 1, got: %d", c.Backup.RetentionDays)
		}
	}

	switch c.Auth.Mode {
	case "jwt":
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters for jwt mode")
		}
		if c.Auth.AdminUsername == "" || c.Auth.AdminPassword == "" {
			return fmt.Errorf("AUTH_ADMIN_USERNAME and AUTH_ADMIN_PASSWORD are required for jwt mode")
		}
	case "none":
		// Development only; the server logs a prominent warning.
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none, got: %s", c.Auth.Mode)
	}

	return nil
}

// ConnectionString builds a lib/pq connection string from the database
// settings.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
