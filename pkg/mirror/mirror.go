// Package mirror holds the local snapshot of the remote directory.
//
// A Mirror is keyed by the roster id and always carries the directory
// reference needed to update or delete an entry. The planner only reads it;
// the executor mutates it after each successful remote call.
package mirror

import (
	"sort"
	"sync"

	"github.com/agentstation/contactsync/pkg/contacts"
)

// Mirror is a keyed snapshot of the remote directory.
type Mirror interface {
	// Get returns the contact stored under id.
	Get(id string) (contacts.Contact, bool, error)

	// Put inserts or replaces the contact stored under c.ID.
	Put(c contacts.Contact) error

	// Delete removes id. Deleting a missing id is not an error.
	Delete(id string) error

	// All returns every contact sorted by id.
	All() ([]contacts.Contact, error)

	// Len returns the number of contacts.
	Len() (int, error)

	// Replace swaps the whole contents for the given contacts.
	Replace(cs []contacts.Contact) error
}

// Persistent is implemented by mirrors that outlive the process.
type Persistent interface {
	Mirror

	// Flush makes all writes durable.
	Flush() error

	// Close releases the underlying store.
	Close() error
}

// Compile-time interface check to ensure proper implementation.
var _ Mirror = (*Memory)(nil)

// Memory is an in-memory Mirror.
type Memory struct {
	mu       sync.RWMutex
	contacts map[string]contacts.Contact
}

// NewMemory creates an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{contacts: make(map[string]contacts.Contact)}
}

// NewMemoryFrom creates an in-memory mirror seeded with cs.
func NewMemoryFrom(cs ...contacts.Contact) *Memory {
	m := NewMemory()
	for _, c := range cs {
		m.contacts[c.ID] = c.Clone()
	}
	return m
}

// Get implements Mirror.
func (m *Memory) Get(id string) (contacts.Contact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return contacts.Contact{}, false, nil
	}
	return c.Clone(), true, nil
}

// Put implements Mirror.
func (m *Memory) Put(c contacts.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c.Clone()
	return nil
}

// Delete implements Mirror.
func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contacts, id)
	return nil
}

// All implements Mirror.
func (m *Memory) All() ([]contacts.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]contacts.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, c.Clone())
	}
	SortByID(out)
	return out, nil
}

// Len implements Mirror.
func (m *Memory) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contacts), nil
}

// Replace implements Mirror.
func (m *Memory) Replace(cs []contacts.Contact) error {
	next := make(map[string]contacts.Contact, len(cs))
	for _, c := range cs {
		next[c.ID] = c.Clone()
	}
	m.mu.Lock()
	m.contacts = next
	m.mu.Unlock()
	return nil
}

// SortByID orders contacts by id in place.
func SortByID(cs []contacts.Contact) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
