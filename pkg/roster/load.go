package roster

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/errors"
)

// Row is one raw roster record, before validation.
type Row struct {
	Line              int // 1-based line in the source file, 0 if unknown
	ID                string
	Name              string
	Email             string
	PhoneNumbers      string // comma separated
	Description       string
	AutoCallRecording string // "Yes" / "No"
}

// Load validates rows and builds the desired set. Only rows without an id
// are rejected. When an id repeats, the first row wins and every later row with
// that id is reported. Rejected rows never abort the load.
func Load(rows []Row) (*Desired, []*errors.RowError) {
	d := NewDesired()
	firstLine := make(map[string]int, len(rows))
	var rowErrs []*errors.RowError

	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}

		c, err := toContact(row, line)
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}

		if !d.add(c) {
			rowErrs = append(rowErrs, errors.NewRowError(line, c.ID,
				fmt.Sprintf("duplicate id, first seen on line %d", firstLine[c.ID]),
				errors.ErrDuplicateID))
			continue
		}
		firstLine[c.ID] = line
	}

	return d, rowErrs
}

func toContact(row Row, line int) (contacts.Contact, *errors.RowError) {
	id := clean(row.ID)
	if id == "" {
		return contacts.Contact{}, errors.NewRowError(line, "", "missing id", nil)
	}

	return contacts.Contact{
		ID:               id,
		Name:             clean(row.Name),
		Email:            clean(row.Email),
		Description:      clean(row.Description),
		PhoneNumbers:     SplitPhones(row.PhoneNumbers),
		AutoCallRecorded: contacts.Flag(parseFlag(row.AutoCallRecording)),
	}, nil
}

// SplitPhones splits a comma separated phone field and normalizes every
// number. Empty fragments are dropped.
func SplitPhones(field string) []string {
	parts := strings.Split(field, ",")
	phones := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := contacts.NormalizePhone(p); n != "" {
			phones = append(phones, n)
		}
	}
	return phones
}

// clean trims surrounding whitespace and applies NFC so visually identical
// names compare equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// parseFlag maps the roster's Yes/No column to a boolean. Anything that is
// not a yes is No, so an odd cell never drops the contact.
func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}
