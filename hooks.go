package contactsync

import (
	"sync"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/reconcile"
)

// Hook function types for directory changes. They run synchronously after
// the directory has accepted a change, in plan order.
type (
	// ContactCreatedHook is called when a contact is added to the directory
	ContactCreatedHook func(c contacts.Contact)

	// ContactUpdatedHook is called when a directory contact is overwritten
	ContactUpdatedHook func(from, to contacts.Contact)

	// ContactDeletedHook is called when a contact is removed from the directory
	ContactDeletedHook func(c contacts.Contact)
)

// Compile-time interface check to ensure proper implementation.
var _ reconcile.Hooks = (*hooks)(nil)

// hooks manages event callbacks for directory changes
type hooks struct {
	mu        sync.RWMutex
	onCreated []ContactCreatedHook
	onUpdated []ContactUpdatedHook
	onDeleted []ContactDeletedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnContactCreated registers a callback for created contacts.
func (s *Syncer) OnContactCreated(fn ContactCreatedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onCreated = append(s.hooks.onCreated, fn)
}

// OnContactUpdated registers a callback for updated contacts.
func (s *Syncer) OnContactUpdated(fn ContactUpdatedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onUpdated = append(s.hooks.onUpdated, fn)
}

// OnContactDeleted registers a callback for deleted contacts.
func (s *Syncer) OnContactDeleted(fn ContactDeletedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onDeleted = append(s.hooks.onDeleted, fn)
}

// ContactCreated implements reconcile.Hooks.
func (h *hooks) ContactCreated(c contacts.Contact) {
	h.mu.RLock()
	fns := h.onCreated
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(c.Clone())
	}
}

// ContactUpdated implements reconcile.Hooks.
func (h *hooks) ContactUpdated(from, to contacts.Contact) {
	h.mu.RLock()
	fns := h.onUpdated
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(from.Clone(), to.Clone())
	}
}

// ContactDeleted implements reconcile.Hooks.
func (h *hooks) ContactDeleted(c contacts.Contact) {
	h.mu.RLock()
	fns := h.onDeleted
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(c.Clone())
	}
}
