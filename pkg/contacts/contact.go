// Package contacts defines the canonical external contact and the equality
// rule that decides whether the directory needs an update.
package contacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Contact is one external contact, identified by the roster's stable ID.
type Contact struct {
	ID               string   `json:"id" yaml:"id"`
	DirectoryRef     string   `json:"external_contact_id,omitempty" yaml:"directory_ref,omitempty"`
	Name             string   `json:"name" yaml:"name"`
	Email            string   `json:"email" yaml:"email"`
	Description      string   `json:"description" yaml:"description"`
	PhoneNumbers     []string `json:"phone_numbers" yaml:"phone_numbers"`
	AutoCallRecorded Flag     `json:"auto_call_recorded" yaml:"auto_call_recorded"`

	// RoutingPath is reported by the directory only. It never takes part in
	// equality and is never sent on create or update.
	RoutingPath string `json:"routing_path,omitempty" yaml:"routing_path,omitempty"`
}

// Label returns "id: name", the form used in log lines and reports.
func (c Contact) Label() string {
	if c.Name == "" {
		return c.ID
	}
	return c.ID + ": " + c.Name
}

// Clone returns a deep copy of the contact.
func (c Contact) Clone() Contact {
	out := c
	if c.PhoneNumbers != nil {
		out.PhoneNumbers = append([]string(nil), c.PhoneNumbers...)
	}
	return out
}

// WithRef returns a copy of c carrying the given directory reference.
func (c Contact) WithRef(ref string) Contact {
	out := c.Clone()
	out.DirectoryRef = ref
	return out
}

// Flag is a boolean that travels as 0/1 on the wire.
type Flag bool

// MarshalJSON encodes the flag as 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1, true/false and their quoted forms.
func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(raw) {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return fmt.Errorf("invalid flag value %q", raw)
		}
		i, err := n.Int64()
		if err != nil {
			return fmt.Errorf("invalid flag value %q", raw)
		}
		*f = i != 0
	}
	return nil
}

// Int returns the 0/1 form of the flag.
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}
