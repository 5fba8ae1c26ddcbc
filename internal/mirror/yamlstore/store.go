// Package yamlstore is a durable mirror kept as a single YAML snapshot file.
// Changes live in memory until Flush, which rewrites the file atomically.
package yamlstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// snapshotVersion is bumped when the file layout changes.
const snapshotVersion = 1

// snapshot is the on-disk layout.
type snapshot struct {
	Version     int                `yaml:"version"`
	RefreshedAt time.Time          `yaml:"refreshed_at,omitempty"`
	Contacts    []contacts.Contact `yaml:"contacts"`
}

// Compile-time interface check to ensure proper implementation.
var _ mirror.Persistent = (*Store)(nil)

// Store is a mirror.Persistent backed by a YAML file.
type Store struct {
	*mirror.Memory

	fs   afero.Fs
	path string
	now  func() time.Time

	mu          sync.Mutex
	dirty       bool
	refreshedAt time.Time
}

// Open loads the snapshot at path on fs, starting empty when the file does
// not exist yet.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{
		Memory: mirror.NewMemory(),
		fs:     fs,
		path:   path,
		now:    time.Now,
	}

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if snap.Version > snapshotVersion {
		return nil, errors.NewParseError("yaml", path, "snapshot was written by a newer version", nil)
	}
	if err := s.Memory.Replace(snap.Contacts); err != nil {
		return nil, err
	}
	s.refreshedAt = snap.RefreshedAt

	return s, nil
}

// OpenOS opens a snapshot on the host filesystem.
func OpenOS(path string) (*Store, error) {
	return Open(afero.NewOsFs(), path)
}

// Put implements mirror.Mirror.
func (s *Store) Put(c contacts.Contact) error {
	s.touch()
	return s.Memory.Put(c)
}

// Delete implements mirror.Mirror.
func (s *Store) Delete(id string) error {
	s.touch()
	return s.Memory.Delete(id)
}

// Replace implements mirror.Mirror.
func (s *Store) Replace(cs []contacts.Contact) error {
	if err := s.Memory.Replace(cs); err != nil {
		return err
	}
	s.mu.Lock()
	s.dirty = true
	s.refreshedAt = s.now().UTC()
	s.mu.Unlock()
	return nil
}

func (s *Store) touch() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// RefreshedAt returns when the snapshot was last replaced wholesale.
func (s *Store) RefreshedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshedAt
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Flush implements mirror.Persistent. The file is written to a temporary
// sibling and renamed into place.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	all, err := s.Memory.All()
	if err != nil {
		return err
	}

	data, err := yaml.MarshalWithOptions(snapshot{
		Version:     snapshotVersion,
		RefreshedAt: s.refreshedAt,
		Contacts:    all,
	}, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", s.path, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(s.path), err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, constants.SecureFilePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return errors.WrapIO("rename", s.path, err)
	}

	s.dirty = false
	return nil
}

// Close implements mirror.Persistent.
func (s *Store) Close() error {
	return s.Flush()
}
