// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setEnvVars sets environment variables and returns a cleanup function.
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()
	original := make(map[string]string)

	for key, value := range vars {
		original[key] = os.Getenv(key)
		os.Setenv(key, value)
	}

	return func() {
		for key, orig := range original {
			if orig == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, orig)
			}
		}
	}
}

func validTestEnv() map[string]string {
	return map[string]string{
		"AUTH_JWT_SECRET":     strings.Repeat("s", 32),
		"AUTH_ADMIN_USERNAME": "admin",
		"AUTH_ADMIN_PASSWORD": "changeme123",
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SERVER_PORT", "server.port"},
		{"DATABASE_SSL_MODE", "database.ssl_mode"},
		{"BACKUP_RETENTION_DAYS", "backup.retention_days"},
		{"AUTH_JWT_SECRET", "auth.jwt_secret"},
		{"LOG_LEVEL", "log.level"},
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cleanup := setEnvVars(t, validTestEnv())
	defer cleanup()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default database port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Backup.Dir != "/data/backups" {
		t.Errorf("expected default backup dir /data/backups, got %s", cfg.Backup.Dir)
	}
	if cfg.Backup.Interval != 24*time.Hour {
		t.Errorf("expected default interval 24h, got %s", cfg.Backup.Interval)
	}
	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("expected default retention 30 days, got %d", cfg.Backup.RetentionDays)
	}
	if cfg.Backup.ScheduleEnabled {
		t.Error("expected schedule disabled by default")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	vars := validTestEnv()
	vars["SERVER_PORT"] = "9090"
	vars["DATABASE_NAME"] = "crm_test"
	vars["BACKUP_RETENTION_DAYS"] = "7"
	vars["BACKUP_INTERVAL"] = "1h"
	cleanup := setEnvVars(t, vars)
	defer cleanup()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from env, got %d", cfg.Server.Port)
	}
	if cfg.Database.Name != "crm_test" {
		t.Errorf("expected database name crm_test, got %s", cfg.Database.Name)
	}
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("expected retention 7, got %d", cfg.Backup.RetentionDays)
	}
	if cfg.Backup.Interval != time.Hour {
		t.Errorf("expected interval 1h, got %s", cfg.Backup.Interval)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	content := `
database:
  name: from_file
backup:
  retention_days: 14
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	vars := validTestEnv()
	vars["CONFIG_PATH"] = configPath
	cleanup := setEnvVars(t, vars)
	defer cleanup()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Name != "from_file" {
		t.Errorf("expected database name from_file, got %s", cfg.Database.Name)
	}
	if cfg.Backup.RetentionDays != 14 {
		t.Errorf("expected retention 14 from file, got %d", cfg.Backup.RetentionDays)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.JWTSecret = strings.Repeat("s", 32)
		cfg.Auth.AdminUsername = "admin"
		cfg.Auth.AdminPassword = "changeme123"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, true},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing database name", func(c *Config) { c.Database.Name = "" }, true},
		{"relative backup dir", func(c *Config) { c.Backup.Dir = "relative/path" }, true},
		{"sub-minute interval", func(c *Config) { c.Backup.Interval = 30 * time.Second }, true},
		{"zero retention", func(c *Config) { c.Backup.RetentionDays = 0 }, true},
		{"backups disabled skips backup checks", func(c *Config) {
			c.Backup.Enabled = false
			c.Backup.Dir = ""
		}, false},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"jwt without admin", func(c *Config) { c.Auth.AdminUsername = "" }, true},
		{"auth mode none skips jwt checks", func(c *Config) {
			c.Auth.Mode = "none"
			c.Auth.JWTSecret = ""
			c.Auth.AdminUsername = ""
		}, false},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "oauth" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{
		Host:    "db.internal",
		Port:    5433,
		User:    "crm",
		Name:    "ogacrm",
		SSLMode: "require",
	}

	got := d.ConnectionString()
	for _, want := range []string{"host=db.internal", "port=5433", "user=crm", "dbname=ogacrm", "sslmode=require"} {
		if !strings.Contains(got, want) {
			t.Errorf("connection string missing %q: %s", want, got)
		}
	}
}
