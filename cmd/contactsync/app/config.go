package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/internal/notify"
	"github.com/agentstation/contactsync/internal/telemetry"
	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
)

// Mirror kinds.
const (
	MirrorMemory = "memory"
	MirrorBolt   = "bolt"
	MirrorYAML   = "yaml"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Directory
	DirectoryURL string
	PageSize     int
	Service      string
	Auth         auth.Credentials

	// Roster transfer
	RosterPath     string
	RosterCopyPath string

	// Mirror
	MirrorKind string
	MirrorPath string

	// Notification
	SMTP notify.SMTPConfig

	// Scheduling and safety
	Interval       time.Duration
	MaxDeleteRatio float64
	Strategy       string

	Telemetry telemetry.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// envBindings maps config keys to the environment variables the deployment
// has always used.
var envBindings = map[string][]string{
	"auth.account_id":         {"ZOOM_APP_ACCOUNT_ID"},
	"auth.client_id":          {"ZOOM_APP_CLIENT_ID"},
	"auth.client_secret":      {"ZOOM_APP_CLIENT_SECRET"},
	"smtp.host":               {"SMTP_SERVER"},
	"smtp.port":               {"SMTP_PORT"},
	"smtp.username":           {"SMTP_USERNAME"},
	"smtp.password":           {"SMTP_PASSWORD"},
	"email.sender":            {"EMAIL_SENDER"},
	"email.recipient":         {"EMAIL_RECIPIENT"},
	"roster.path":             {"ROSTER_PATH", "CSV_PATH"},
	"telemetry.enabled":       {"CONTACTSYNC_TELEMETRY_ENABLED"},
	"telemetry.stdout":        {"CONTACTSYNC_TELEMETRY_STDOUT"},
	"telemetry.otlp_endpoint": {"CONTACTSYNC_OTLP_ENDPOINT"},
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (configFile, or ~/.contactsync.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, errors.NewConfigError("config", "binding "+key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "reading config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		DirectoryURL: v.GetString("directory.base_url"),
		PageSize:     v.GetInt("directory.page_size"),
		Service:      v.GetString("directory.service"),
		Auth: auth.Credentials{
			TokenURL:     v.GetString("auth.token_url"),
			AccountID:    v.GetString("auth.account_id"),
			ClientID:     v.GetString("auth.client_id"),
			ClientSecret: v.GetString("auth.client_secret"),
		},

		RosterPath:     v.GetString("roster.path"),
		RosterCopyPath: v.GetString("roster.local_copy"),

		MirrorKind: strings.ToLower(v.GetString("mirror.kind")),
		MirrorPath: v.GetString("mirror.path"),

		SMTP: notify.SMTPConfig{
			Host:      v.GetString("smtp.host"),
			Port:      v.GetInt("smtp.port"),
			Username:  v.GetString("smtp.username"),
			Password:  v.GetString("smtp.password"),
			Sender:    v.GetString("email.sender"),
			Recipient: v.GetString("email.recipient"),
			Subject:   v.GetString("email.subject"),
		},

		Interval:       v.GetDuration("schedule.interval"),
		MaxDeleteRatio: v.GetFloat64("sync.max_delete_ratio"),
		Strategy:       v.GetString("sync.strategy"),

		Telemetry: telemetry.Config{
			Enabled:      v.GetBool("telemetry.enabled"),
			Stdout:       v.GetBool("telemetry.stdout"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
		},

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.base_url", constants.DefaultDirectoryURL)
	v.SetDefault("directory.page_size", constants.DefaultPageSize)
	v.SetDefault("directory.service", "Zoom")
	v.SetDefault("auth.token_url", constants.DefaultTokenURL)
	v.SetDefault("roster.path", constants.DefaultRosterPath)
	v.SetDefault("mirror.kind", MirrorMemory)
	v.SetDefault("mirror.path", constants.DefaultMirrorPath)
	v.SetDefault("smtp.port", 25)
	v.SetDefault("email.subject", constants.ReportSubject)
	v.SetDefault("schedule.interval", constants.DefaultRunInterval)
	v.SetDefault("sync.max_delete_ratio", constants.DefaultMaxDeleteRatio)
	v.SetDefault("sync.strategy", string(differ.ApplyAll))
}

// Validate checks settings that every command relies on. Credentials and
// SMTP are checked where they are used.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.NewValidationError("schedule.interval", c.Interval, "must be positive")
	}
	if c.PageSize <= 0 || c.PageSize > constants.MaxPageSize {
		return errors.NewValidationError("directory.page_size", c.PageSize, "must be between 1 and 1000")
	}
	if c.MaxDeleteRatio < 0 || c.MaxDeleteRatio > 1 {
		return errors.NewValidationError("sync.max_delete_ratio", c.MaxDeleteRatio, "must be between 0 and 1")
	}
	if _, err := differ.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	switch c.MirrorKind {
	case MirrorMemory, MirrorBolt, MirrorYAML:
	default:
		return errors.NewValidationError("mirror.kind", c.MirrorKind, "must be one of memory, bolt, yaml")
	}
	if c.RosterPath == "" {
		return errors.NewValidationError("roster.path", c.RosterPath, "is required")
	}
	if lower := strings.ToLower(c.RosterPath); strings.HasPrefix(lower, "smb://") || strings.HasPrefix(c.RosterPath, `\\`) {
		return errors.NewValidationError("roster.path", c.RosterPath,
			"SMB shares are not read directly, mount the share and point roster.path at the mounted file")
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags so flag values take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// NotifyEnabled reports whether enough SMTP settings exist to send email.
func (c *Config) NotifyEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.Recipient != ""
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first so its values win over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
