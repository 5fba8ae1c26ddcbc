// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App type so they can be tested with Mock.
package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// Interface defines the application context interface that commands need.
type Interface interface {
	// Syncer returns the configured Syncer, creating it lazily.
	Syncer() (*contactsync.Syncer, error)

	// Mirror returns the configured mirror, opening it lazily.
	Mirror() (mirror.Mirror, error)

	// Credentials returns the configured directory credentials.
	Credentials() auth.Credentials

	// CredentialProvider returns the token source built from Credentials.
	CredentialProvider() contactsync.CredentialProvider

	// RunInterval returns the configured schedule interval.
	RunInterval() time.Duration

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
