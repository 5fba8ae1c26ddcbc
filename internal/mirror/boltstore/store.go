// Package boltstore is a durable mirror backed by a bbolt database file.
// Contacts are stored as JSON values keyed by roster id.
package boltstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/mirror"
)

var (
	contactsBucket = []byte("contacts")
	metaBucket     = []byte("meta")
	refreshedKey   = []byte("refreshed_at")
)

// Compile-time interface check to ensure proper implementation.
var _ mirror.Persistent = (*Store)(nil)

// Store is a mirror.Persistent on a bbolt file.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", filepath.Dir(path), err)
	}

	db, err := bolt.Open(path, constants.SecureFilePermissions, &bolt.Options{Timeout: constants.BoltOpenTimeout})
	if err != nil {
		return nil, errors.WrapResource("open", "mirror", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{contactsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("initialize", "mirror", path, err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.db.Path()
}

// Get implements mirror.Mirror.
func (s *Store) Get(id string) (contacts.Contact, bool, error) {
	var (
		c     contacts.Contact
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(contactsBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return contacts.Contact{}, false, errors.WrapParse("json", id, err)
	}
	return c, found, nil
}

// Put implements mirror.Mirror.
func (s *Store) Put(c contacts.Contact) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.WrapParse("json", c.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).Put([]byte(c.ID), data)
	})
}

// Delete implements mirror.Mirror.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).Delete([]byte(id))
	})
}

// All implements mirror.Mirror. bbolt iterates keys in byte order, which is
// the id order the mirror contract asks for.
func (s *Store) All() ([]contacts.Contact, error) {
	var out []contacts.Contact
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).ForEach(func(k, v []byte) error {
			var c contacts.Contact
			if err := json.Unmarshal(v, &c); err != nil {
				return errors.WrapParse("json", string(k), err)
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len implements mirror.Mirror.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(contactsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Replace implements mirror.Mirror in a single transaction, so a failure
// keeps the previous snapshot.
func (s *Store) Replace(cs []contacts.Contact) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(contactsBucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(contactsBucket)
		if err != nil {
			return err
		}
		for _, c := range cs {
			data, err := json.Marshal(c)
			if err != nil {
				return errors.WrapParse("json", c.ID, err)
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
		}
		stamp, err := s.now().UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(refreshedKey, stamp)
	})
}

// RefreshedAt returns when the store was last replaced wholesale, or the
// zero time if never.
func (s *Store) RefreshedAt() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(refreshedKey)
		if data == nil {
			return nil
		}
		return t.UnmarshalText(data)
	})
	return t, err
}

// Flush implements mirror.Persistent.
func (s *Store) Flush() error {
	return s.db.Sync()
}

// Close implements mirror.Persistent.
func (s *Store) Close() error {
	return s.db.Close()
}
