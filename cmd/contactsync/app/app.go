// Package app provides the application context and dependency management
// for the contactsync CLI. It centralizes configuration, logging and the
// lazily built Syncer with its collaborators.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/internal/directory"
	"github.com/agentstation/contactsync/internal/mirror/boltstore"
	"github.com/agentstation/contactsync/internal/mirror/yamlstore"
	"github.com/agentstation/contactsync/internal/notify"
	"github.com/agentstation/contactsync/internal/rosterfile"
	"github.com/agentstation/contactsync/internal/telemetry"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the contactsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Lazily built dependencies
	mu                sync.Mutex
	syncer            *contactsync.Syncer
	mirror            mirror.Mirror
	provider          *auth.Provider
	telemetryShutdown telemetry.ShutdownFunc
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the --format flag value.
func (a *App) OutputFormat() string { return a.config.Format }

// RunInterval returns the configured schedule interval.
func (a *App) RunInterval() time.Duration { return a.config.Interval }

// Credentials returns the configured directory credentials.
func (a *App) Credentials() auth.Credentials { return a.config.Auth }

// CredentialProvider returns the shared token provider.
func (a *App) CredentialProvider() contactsync.CredentialProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credentialProvider()
}

func (a *App) credentialProvider() *auth.Provider {
	if a.provider == nil {
		a.provider = auth.NewProvider(a.config.Auth)
	}
	return a.provider
}

// Mirror returns the configured mirror, opening it on first use.
func (a *App) Mirror() (mirror.Mirror, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openMirror()
}

func (a *App) openMirror() (mirror.Mirror, error) {
	if a.mirror != nil {
		return a.mirror, nil
	}

	var (
		m   mirror.Mirror
		err error
	)
	switch a.config.MirrorKind {
	case MirrorBolt:
		m, err = boltstore.Open(a.config.MirrorPath)
	case MirrorYAML:
		m, err = yamlstore.OpenOS(a.config.MirrorPath)
	default:
		m = mirror.NewMemory()
	}
	if err != nil {
		return nil, errors.WrapResource("open", "mirror", a.config.MirrorPath, err)
	}

	a.logger.Debug().Str("kind", a.config.MirrorKind).Str("path", a.config.MirrorPath).Msg("Mirror opened")
	a.mirror = m
	return m, nil
}

// Syncer returns the Syncer, building it and its collaborators on first use.
func (a *App) Syncer() (*contactsync.Syncer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.syncer != nil {
		return a.syncer, nil
	}

	if err := a.config.Validate(); err != nil {
		return nil, err
	}
	if status := auth.Check(a.config.Auth); status.State != auth.StateConfigured {
		return nil, &errors.ConfigError{Component: "auth", Message: status.Summary}
	}

	if a.telemetryShutdown == nil {
		shutdown, err := telemetry.Init(context.Background(), a.config.Telemetry, "contactsync", a.version)
		if err != nil {
			return nil, err
		}
		a.telemetryShutdown = shutdown
	}

	m, err := a.openMirror()
	if err != nil {
		return nil, err
	}

	provider := a.credentialProvider()
	dir := directory.New(a.config.DirectoryURL, provider)

	var sourceOpts []rosterfile.Option
	if a.config.RosterCopyPath != "" {
		sourceOpts = append(sourceOpts, rosterfile.WithLocalCopy(afero.NewOsFs(), a.config.RosterCopyPath))
	}
	source := rosterfile.NewOS(a.config.RosterPath, sourceOpts...)

	notifier, err := a.notifier()
	if err != nil {
		return nil, err
	}

	s, err := contactsync.New(provider, dir, m, source,
		contactsync.WithLogger(a.logger),
		contactsync.WithNotifier(notifier),
		contactsync.WithMetrics(telemetry.NewMetrics()),
		contactsync.WithPageSize(a.config.PageSize),
		contactsync.WithMaxDeleteRatio(a.config.MaxDeleteRatio),
		contactsync.WithStrategy(differ.ApplyStrategy(a.config.Strategy)),
		contactsync.WithService(a.config.Service),
	)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}

	a.syncer = s
	return s, nil
}

// notifier logs every report and emails it when SMTP is configured.
func (a *App) notifier() (contactsync.Notifier, error) {
	notifiers := notify.Multi{&notify.Log{Logger: a.logger}}
	if a.config.NotifyEnabled() {
		if err := a.config.SMTP.Validate(); err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewSMTP(a.config.SMTP))
	}
	return notifiers, nil
}

// Shutdown stops scheduled runs and releases the mirror and telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.syncer != nil {
		if err := a.syncer.AutoRunOff(); err != nil {
			errs = append(errs, err)
		}
	}
	if p, ok := a.mirror.(mirror.Persistent); ok {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
		a.mirror = nil
	}
	if a.telemetryShutdown != nil {
		if err := a.telemetryShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		a.telemetryShutdown = nil
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithMirror sets the mirror instead of opening the configured one.
func WithMirror(m mirror.Mirror) Option {
	return func(a *App) error {
		a.mirror = m
		return nil
	}
}

// WithSyncer sets a prebuilt Syncer (useful for testing).
func WithSyncer(s *contactsync.Syncer) Option {
	return func(a *App) error {
		a.syncer = s
		return nil
	}
}
