// Package roster turns roster file rows into the desired set of contacts.
package roster

import (
	"github.com/agentstation/contactsync/pkg/contacts"
)

// Desired is the set of contacts the roster says should exist, in roster order.
type Desired struct {
	order    []string
	contacts map[string]contacts.Contact
}

// NewDesired builds a desired set from contacts that are already valid.
// Later duplicates of an id are ignored; use Load for rows that need checking.
func NewDesired(cs ...contacts.Contact) *Desired {
	d := &Desired{contacts: make(map[string]contacts.Contact, len(cs))}
	for _, c := range cs {
		d.add(c)
	}
	return d
}

func (d *Desired) add(c contacts.Contact) bool {
	if _, exists := d.contacts[c.ID]; exists {
		return false
	}
	d.order = append(d.order, c.ID)
	d.contacts[c.ID] = c
	return true
}

// Get returns the desired contact for id.
func (d *Desired) Get(id string) (contacts.Contact, bool) {
	c, ok := d.contacts[id]
	return c.Clone(), ok
}

// Has reports whether id is in the desired set.
func (d *Desired) Has(id string) bool {
	_, ok := d.contacts[id]
	return ok
}

// IDs returns the ids in roster order.
func (d *Desired) IDs() []string {
	return append([]string(nil), d.order...)
}

// Contacts returns the contacts in roster order.
func (d *Desired) Contacts() []contacts.Contact {
	out := make([]contacts.Contact, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.contacts[id].Clone())
	}
	return out
}

// Len returns the number of contacts.
func (d *Desired) Len() int {
	return len(d.order)
}
