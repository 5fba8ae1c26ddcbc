// Package constants provides shared constants used throughout the contactsync codebase.
// This includes timeouts, paging limits, file permissions, and roster column
// names that must stay consistent between the loader and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the directory and token endpoint
	DefaultHTTPTimeout = 30 * time.Second

	// RunTimeout bounds a single reconciliation run end to end
	RunTimeout = 30 * time.Minute

	// DefaultRunInterval is the default interval between scheduled runs
	DefaultRunInterval = 1 * time.Hour

	// TokenExpiryLeeway is subtracted from a token's lifetime before it is reused
	TokenExpiryLeeway = 60 * time.Second

	// ShutdownTimeout is how long a graceful shutdown waits for an in-flight run
	ShutdownTimeout = 5 * time.Second

	// BoltOpenTimeout is how long opening the bolt mirror waits for its file lock
	BoltOpenTimeout = 1 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for files holding directory data (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// DefaultPageSize is the number of contacts requested per directory listing page
	DefaultPageSize = 300

	// MaxPageSize is the largest page size the directory accepts
	MaxPageSize = 1000

	// DefaultMaxDeleteRatio is the share of observed contacts a single plan may delete
	DefaultMaxDeleteRatio = 0.5

	// MaxErrorBodySize caps how much of an error response body is kept
	MaxErrorBodySize = 4096
)

// Directory defaults
const (
	// DirectoryService names the remote directory in errors and logs
	DirectoryService = "zoom"

	// DefaultDirectoryURL is the base URL of the directory API
	DefaultDirectoryURL = "https://api.zoom.us/v2"

	// DefaultTokenURL is the OAuth token endpoint
	DefaultTokenURL = "https://zoom.us/oauth/token"

	// ExternalContactsPath is the directory collection holding external contacts
	ExternalContactsPath = "/phone/external_contacts"
)

// Roster column headers as exported by the roster system
const (
	ColumnID               = "ID"
	ColumnName             = "Name (Required)"
	ColumnEmail            = "Email"
	ColumnPhoneNumber      = "Phone Number"
	ColumnDescription      = "Description"
	ColumnAutoCallRecorded = "Automatic Call Recording"
)

// Path constants
const (
	// DefaultRosterPath is where the roster is read from when none is configured
	DefaultRosterPath = "./contacts.csv"

	// DefaultConfigName is the config file name searched in $HOME and the working directory
	DefaultConfigName = ".contactsync"

	// DefaultMirrorPath is the default location of a durable mirror
	DefaultMirrorPath = "./contactsync-mirror.db"
)

// Format constants
const (
	// TimeFormatReport is the timestamp layout used in run reports
	TimeFormatReport = "Mon, 2 Jan 2006, 3:04:05 pm"

	// TimeFormatRunID is the layout used to derive run identifiers
	TimeFormatRunID = "20060102-150405"
)

// Report constants
const (
	// ReportSubject is the subject line of the notification email
	ReportSubject = "Zoom Contacts Update Report"
)
