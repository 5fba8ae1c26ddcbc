package appcontext

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/internal/rosterfile"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// RosterPath is where NewTestSyncer places the roster.
const RosterPath = "/share/contacts.csv"

// MemoryDirectory is a single-page in-memory directory for command tests.
type MemoryDirectory struct {
	mu      sync.Mutex
	entries map[string]contacts.Contact
	next    int
}

// NewMemoryDirectory seeds a directory with cs.
func NewMemoryDirectory(cs ...contacts.Contact) *MemoryDirectory {
	d := &MemoryDirectory{entries: map[string]contacts.Contact{}}
	for _, c := range cs {
		_, _ = d.CreateDirectoryEntry(context.Background(), c)
	}
	return d
}

// ListDirectory returns every entry in one page.
func (d *MemoryDirectory) ListDirectory(context.Context, string, int) (*mirror.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	page := &mirror.Page{TotalRecords: len(d.entries)}
	for _, c := range d.entries {
		page.Contacts = append(page.Contacts, c.Clone())
	}
	sort.Slice(page.Contacts, func(i, j int) bool { return page.Contacts[i].ID < page.Contacts[j].ID })
	return page, nil
}

// CreateDirectoryEntry stores c under a fresh reference.
func (d *MemoryDirectory) CreateDirectoryEntry(_ context.Context, c contacts.Contact) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	ref := fmt.Sprintf("ref-%d", d.next)
	d.entries[ref] = c.WithRef(ref)
	return ref, nil
}

// UpdateDirectoryEntry overwrites ref.
func (d *MemoryDirectory) UpdateDirectoryEntry(_ context.Context, ref string, c contacts.Contact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[ref] = c.WithRef(ref)
	return nil
}

// DeleteDirectoryEntry removes ref.
func (d *MemoryDirectory) DeleteDirectoryEntry(_ context.Context, ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, ref)
	return nil
}

// IDs returns the roster ids present in the directory, sorted.
func (d *MemoryDirectory) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.entries))
	for _, c := range d.entries {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// StaticCredentials always yields the same token.
type StaticCredentials struct{}

// AcquireCredential returns a fixed bearer token.
func (StaticCredentials) AcquireCredential(context.Context) (auth.Token, error) {
	return auth.Token{AccessToken: "token", TokenType: "bearer"}, nil
}

// NewTestSyncer builds a Syncer over an in-memory roster, mirror and directory.
func NewTestSyncer(t testing.TB, roster string, dir *MemoryDirectory, opts ...contactsync.Option) *contactsync.Syncer {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, RosterPath, []byte(roster), 0o644); err != nil {
		t.Fatalf("writing roster: %v", err)
	}

	s, err := contactsync.New(StaticCredentials{}, dir, mirror.NewMemory(), rosterfile.New(fs, RosterPath), opts...)
	if err != nil {
		t.Fatalf("creating syncer: %v", err)
	}
	return s
}
