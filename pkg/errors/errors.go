// Package errors provides custom error types for the contactsync system.
// These errors separate failures that abort a whole run from failures that
// only affect a single roster row or a single directory action, so callers can
// decide programmatically whether to keep going.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join forward to the standard library so callers need only one errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the contactsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRow indicates that a roster row was rejected by the loader
	ErrInvalidRow = errors.New("invalid roster row")

	// ErrDuplicateID indicates that a roster row repeats an id seen earlier in the file
	ErrDuplicateID = errors.New("duplicate roster id")

	// ErrUnauthorized indicates that a credential could not be acquired or was rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates that the directory rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the directory is temporarily unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrFatal marks errors that abort an entire run
	ErrFatal = errors.New("fatal run error")

	// ErrRunInProgress indicates that a run was skipped because another one is still in flight
	ErrRunInProgress = errors.New("run already in progress")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// Run stages that can fail fatally.
const (
	StageCredential = "credential"
	StageRefresh    = "refresh"
	StageTransfer   = "transfer"
	StageParse      = "parse"
	StageSafety     = "safety"
	StageInternal   = "internal"
)

// RunError aborts the entire run. No actions are applied once it is raised;
// the next scheduled run starts again from scratch.
type RunError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("run aborted during %s: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RunError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RunError) Is(target error) bool {
	return target == ErrFatal
}

// NewRunError creates a new RunError for the given stage.
// A nil err yields nil so call sites can wrap unconditionally.
func NewRunError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{Stage: stage, Err: err}
}

// RowError reports a roster row that was excluded from the desired set.
type RowError struct {
	Line   int
	ID     string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *RowError) Error() string {
	switch {
	case e.ID != "" && e.Line > 0:
		return fmt.Sprintf("roster line %d (id %s): %s", e.Line, e.ID, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("roster line %d: %s", e.Line, e.Reason)
	default:
		return fmt.Sprintf("roster row: %s", e.Reason)
	}
}

// Unwrap implements errors.Unwrap
func (e *RowError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RowError) Is(target error) bool {
	return target == ErrInvalidRow
}

// NewRowError creates a new RowError
func NewRowError(line int, id, reason string, err error) *RowError {
	return &RowError{Line: line, ID: id, Reason: reason, Err: err}
}

// ActionError reports a single create, update or delete that the directory rejected.
type ActionError struct {
	Action       string // "create", "update", "delete"
	ID           string
	DirectoryRef string
	Err          error
}

// Error implements the error interface
func (e *ActionError) Error() string {
	if e.DirectoryRef != "" {
		return fmt.Sprintf("failed to %s contact %s (ref %s): %v", e.Action, e.ID, e.DirectoryRef, e.Err)
	}
	return fmt.Sprintf("failed to %s contact %s: %v", e.Action, e.ID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ActionError) Unwrap() error {
	return e.Err
}

// Detail returns the most specific message available for the failure,
// preferring the directory's own message over transport text.
func (e *ActionError) Detail() string {
	var apiErr *APIError
	if errors.As(e.Err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// NewActionError creates a new ActionError
func NewActionError(action, id, ref string, err error) *ActionError {
	return &ActionError{Action: action, ID: id, DirectoryRef: ref, Err: err}
}

// APIError represents an error response from the remote directory
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return target == ErrUnauthorized
	case e.StatusCode >= 500:
		return target == ErrServiceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// AuthenticationError represents a failure to acquire a credential
type AuthenticationError struct {
	Service string
	Method  string // "account_credentials", "bearer", ...
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// TransferError represents a failure to retrieve the roster file
type TransferError struct {
	Source string
	Path   string
	Err    error
}

// Error implements the error interface
func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to transfer roster %s from %s: %v", e.Path, e.Source, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransferError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "json", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "open", "load"
	Resource  string // "mirror", "config", "syncer"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRowError checks if an error is a roster row error
func IsRowError(err error) bool {
	return errors.Is(err, ErrInvalidRow)
}

// IsFatal checks if an error aborts the whole run
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsUnauthorized checks if an error is an authentication failure
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsServiceUnavailable checks if an error indicates directory unavailability
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   err.Error(),
		Err:       err,
	}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
