package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
)

// isolate keeps tests away from the developer's home config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// TestLoadConfig verifies defaults.
func TestLoadConfig(t *testing.T) {
	isolate(t)

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Interval != constants.DefaultRunInterval {
		t.Errorf("Interval = %v, want %v", config.Interval, constants.DefaultRunInterval)
	}
	if config.PageSize != constants.DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", config.PageSize, constants.DefaultPageSize)
	}
	if config.MirrorKind != MirrorMemory {
		t.Errorf("MirrorKind = %s, want %s", config.MirrorKind, MirrorMemory)
	}
	if config.Service != "Zoom" {
		t.Errorf("Service = %s, want Zoom", config.Service)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestConfig_EnvironmentVariables verifies the legacy variable names.
func TestConfig_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("ZOOM_APP_ACCOUNT_ID", "acct")
	t.Setenv("ZOOM_APP_CLIENT_ID", "client")
	t.Setenv("ZOOM_APP_CLIENT_SECRET", "secret")
	t.Setenv("SMTP_SERVER", "mail.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("EMAIL_RECIPIENT", "ops@example.com")
	t.Setenv("CSV_PATH", "/mnt/share/contacts.csv")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Auth.AccountID != "acct" || config.Auth.ClientID != "client" || config.Auth.ClientSecret != "secret" {
		t.Errorf("Auth = %+v, want values from ZOOM_APP_*", config.Auth)
	}
	if config.SMTP.Host != "mail.example.com" || config.SMTP.Port != 587 {
		t.Errorf("SMTP = %s:%d, want mail.example.com:587", config.SMTP.Host, config.SMTP.Port)
	}
	if config.RosterPath != "/mnt/share/contacts.csv" {
		t.Errorf("RosterPath = %s, want value from CSV_PATH", config.RosterPath)
	}
	if !config.NotifyEnabled() {
		t.Error("NotifyEnabled() = false with host and recipient set")
	}
}

// TestConfig_File verifies an explicit config file is read.
func TestConfig_File(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "contactsync.yaml")
	content := `schedule:
  interval: 15m
mirror:
  kind: BOLT
  path: /var/lib/contactsync/mirror.db
sync:
  max_delete_ratio: 0.25
  strategy: additive
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", config.Interval)
	}
	if config.MirrorKind != MirrorBolt {
		t.Errorf("MirrorKind = %s, want bolt", config.MirrorKind)
	}
	if config.MaxDeleteRatio != 0.25 {
		t.Errorf("MaxDeleteRatio = %v, want 0.25", config.MaxDeleteRatio)
	}
	if config.Strategy != "additive" {
		t.Errorf("Strategy = %s, want additive", config.Strategy)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %s, want %s", config.ConfigFile, path)
	}
}

// TestConfig_MissingExplicitFile verifies a named config file must exist.
func TestConfig_MissingExplicitFile(t *testing.T) {
	home := isolate(t)
	if _, err := LoadConfig(filepath.Join(home, "absent.yaml")); err == nil {
		t.Error("LoadConfig() with a missing explicit file should fail")
	}
}

// TestConfig_Validate verifies each rejected setting.
func TestConfig_Validate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"interval", func(c *Config) { c.Interval = 0 }, "schedule.interval"},
		{"page size", func(c *Config) { c.PageSize = constants.MaxPageSize + 1 }, "directory.page_size"},
		{"delete ratio", func(c *Config) { c.MaxDeleteRatio = 1.5 }, "sync.max_delete_ratio"},
		{"strategy", func(c *Config) { c.Strategy = "sideways" }, "strategy"},
		{"mirror kind", func(c *Config) { c.MirrorKind = "redis" }, "mirror.kind"},
		{"roster path", func(c *Config) { c.RosterPath = "" }, "roster.path"},
		{"smb url", func(c *Config) { c.RosterPath = "smb://fileserver/hr/contacts.csv" }, "roster.path"},
		{"unc path", func(c *Config) { c.RosterPath = `\\fileserver\hr\contacts.csv` }, "roster.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig("")
			if err != nil {
				t.Fatalf("LoadConfig() failed: %v", err)
			}
			tt.mutate(config)

			err = config.Validate()
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", vErr.Field, tt.field)
			}
		})
	}
}

// TestConfig_UpdateFromFlags verifies flags override loaded values.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "error"}

	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || !config.NoColor {
		t.Error("boolean flags not applied")
	}
	if config.Format != "yaml" || config.LogLevel != "error" {
		t.Error("empty string flags should keep existing values")
	}

	config.UpdateFromFlags(false, false, false, "json", "debug")
	if config.Format != "json" || config.LogLevel != "debug" {
		t.Errorf("Format/LogLevel = %s/%s, want json/debug", config.Format, config.LogLevel)
	}
}
