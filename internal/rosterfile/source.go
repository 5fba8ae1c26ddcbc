// Package rosterfile fetches the roster export from a file share.
//
// The share is reached through an afero.Fs: in production an OS path on a
// mounted share, in tests an in-memory filesystem.
package rosterfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
)

// Source reads one roster file.
type Source struct {
	fs   afero.Fs
	path string

	// local copy, written after every successful fetch
	copyFs   afero.Fs
	copyPath string
}

// Option configures a Source.
type Option func(*Source)

// WithLocalCopy keeps a copy of the last fetched roster at path on fs.
func WithLocalCopy(fs afero.Fs, path string) Option {
	return func(s *Source) {
		s.copyFs = fs
		s.copyPath = path
	}
}

// New creates a Source reading path from fs.
func New(fs afero.Fs, path string, opts ...Option) *Source {
	s := &Source{fs: fs, path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS creates a Source reading path from the host filesystem.
func NewOS(path string, opts ...Option) *Source {
	return New(afero.NewOsFs(), path, opts...)
}

// Path returns the roster location.
func (s *Source) Path() string {
	return s.path
}

// FetchRoster reads the whole roster. Any failure is a TransferError.
func (s *Source) FetchRoster(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.transferError(err)
	}

	info, err := s.fs.Stat(s.path)
	if err != nil {
		return nil, s.transferError(err)
	}
	if info.IsDir() {
		return nil, s.transferError(fmt.Errorf("%s is a directory", s.path))
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, s.transferError(err)
	}

	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("path", s.path).
		Int("bytes", len(data)).
		Time("modified", info.ModTime()).
		Msg("Fetched roster")

	if s.copyFs != nil && s.copyPath != "" {
		if err := s.writeCopy(data); err != nil {
			logger.Warn().Err(err).Str("path", s.copyPath).Msg("Could not keep a local copy of the roster")
		}
	}

	return data, nil
}

func (s *Source) writeCopy(data []byte) error {
	if dir := filepath.Dir(s.copyPath); dir != "." {
		if err := s.copyFs.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}
	if err := afero.WriteFile(s.copyFs, s.copyPath, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", s.copyPath, err)
	}
	return nil
}

func (s *Source) transferError(err error) error {
	return &errors.TransferError{Source: "file share", Path: s.path, Err: err}
}
