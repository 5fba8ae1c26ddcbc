package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// Mock provides a mock implementation of Interface for testing.
// A nil function field yields a default or zero value.
type Mock struct {
	SyncerFunc             func() (*contactsync.Syncer, error)
	MirrorFunc             func() (mirror.Mirror, error)
	CredentialsFunc        func() auth.Credentials
	CredentialProviderFunc func() contactsync.CredentialProvider
	RunIntervalFunc        func() time.Duration
	LoggerFunc             func() *zerolog.Logger
	Format                 string
	VersionFunc            func() string
}

// Syncer returns a syncer using the mock function or nil.
func (m *Mock) Syncer() (*contactsync.Syncer, error) {
	if m.SyncerFunc != nil {
		return m.SyncerFunc()
	}
	return nil, nil
}

// Mirror returns a mirror using the mock function or an empty in-memory one.
func (m *Mock) Mirror() (mirror.Mirror, error) {
	if m.MirrorFunc != nil {
		return m.MirrorFunc()
	}
	return mirror.NewMemory(), nil
}

// Credentials returns credentials using the mock function or the zero value.
func (m *Mock) Credentials() auth.Credentials {
	if m.CredentialsFunc != nil {
		return m.CredentialsFunc()
	}
	return auth.Credentials{}
}

// CredentialProvider returns a provider using the mock function or one built
// from Credentials.
func (m *Mock) CredentialProvider() contactsync.CredentialProvider {
	if m.CredentialProviderFunc != nil {
		return m.CredentialProviderFunc()
	}
	return auth.NewProvider(m.Credentials())
}

// RunInterval returns the interval using the mock function or the default.
func (m *Mock) RunInterval() time.Duration {
	if m.RunIntervalFunc != nil {
		return m.RunIntervalFunc()
	}
	return constants.DefaultRunInterval
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the mock's Format field.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
