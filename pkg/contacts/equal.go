package contacts

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// FieldChange describes one field that differs between two contacts.
type FieldChange struct {
	Path     string // Field name, e.g. "phone_numbers"
	OldValue string // Previous value (string representation)
	NewValue string // New value (string representation)
}

// String renders the change as "path: old → new".
func (fc FieldChange) String() string {
	return fmt.Sprintf("%s: %s → %s", fc.Path, fc.OldValue, fc.NewValue)
}

// NormalizePhone removes every whitespace rune and folds full-width digits
// and punctuation to their ASCII forms.
func NormalizePhone(phone string) string {
	folded := width.Fold.String(phone)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// NormalizePhones normalizes each number and keeps source order.
func NormalizePhones(phones []string) []string {
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		out = append(out, NormalizePhone(p))
	}
	return out
}

// Equal reports whether a and b need no update. Phone numbers are compared
// as ordered sequences after normalization; DirectoryRef and RoutingPath are
// ignored.
func Equal(a, b Contact) bool {
	if a.ID != b.ID ||
		a.Name != b.Name ||
		a.Email != b.Email ||
		a.Description != b.Description ||
		a.AutoCallRecorded != b.AutoCallRecorded {
		return false
	}
	return phonesEqual(a.PhoneNumbers, b.PhoneNumbers)
}

func phonesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if NormalizePhone(a[i]) != NormalizePhone(b[i]) {
			return false
		}
	}
	return true
}

// Diff lists the fields that make a and b unequal, in a fixed order.
// It returns nil exactly when Equal(a, b) holds.
func Diff(a, b Contact) []FieldChange {
	var changes []FieldChange
	add := func(path, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, FieldChange{Path: path, OldValue: oldValue, NewValue: newValue})
		}
	}

	add("id", a.ID, b.ID)
	add("name", a.Name, b.Name)
	add("email", a.Email, b.Email)
	add("description", a.Description, b.Description)
	if !phonesEqual(a.PhoneNumbers, b.PhoneNumbers) {
		changes = append(changes, FieldChange{
			Path:     "phone_numbers",
			OldValue: formatPhones(a.PhoneNumbers),
			NewValue: formatPhones(b.PhoneNumbers),
		})
	}
	add("auto_call_recorded", fmt.Sprint(a.AutoCallRecorded.Int()), fmt.Sprint(b.AutoCallRecorded.Int()))

	return changes
}

func formatPhones(phones []string) string {
	return "[" + strings.Join(NormalizePhones(phones), ", ") + "]"
}
