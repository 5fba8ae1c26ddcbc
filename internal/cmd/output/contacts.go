package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/report"
)

// Symbols used in table cells and status lines.
const (
	Success = "✓"
	Error   = "✗"
	Warning = "!"
	Info    = "i"
)

// ContactsTable lays out mirror contents.
func ContactsTable(cs []contacts.Contact) Data {
	data := Data{
		Headers: []string{
			Title("id"), Title("name"), Title("email"), Title("phone_numbers"),
			Title("auto_call_recorded"), Title("directory_ref"),
		},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, c := range cs {
		data.Rows = append(data.Rows, []string{
			c.ID,
			c.Name,
			c.Email,
			strings.Join(c.PhoneNumbers, ", "),
			strconv.Itoa(c.AutoCallRecorded.Int()),
			c.DirectoryRef,
		})
	}
	return data
}

// ReportTable lays out report entries.
func ReportTable(entries []report.Entry) Data {
	data := Data{Headers: []string{Title("kind"), Title("outcome"), Title("id"), Title("message")}}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{string(e.Kind), string(e.Outcome), e.ID, e.Message})
	}
	return data
}

// AuthTable lays out a credential status.
func AuthTable(s *auth.Status) Data {
	symbol := Success
	switch s.State {
	case auth.StateMissing:
		symbol = Error
	case auth.StateInvalid:
		symbol = Warning
	}

	data := Data{Headers: []string{Title("status"), Title("detail")}}
	data.Rows = append(data.Rows, []string{symbol + " " + s.State.String(), s.Summary})
	for _, key := range s.Missing {
		data.Rows = append(data.Rows, []string{Error + " missing", key})
	}
	return data
}

// ReportView is the structured form of a report.
type ReportView struct {
	Summary string         `json:"summary" yaml:"summary"`
	Counts  report.Counts  `json:"counts" yaml:"counts"`
	Entries []report.Entry `json:"entries" yaml:"entries"`
}

// WriteReport renders r in the given format. Tables are followed by the summary line.
func WriteReport(w io.Writer, format Format, r *report.Report) error {
	if format == FormatTable || format == "" {
		if r.HasContent() {
			if err := NewFormatter(FormatTable).Format(w, ReportTable(r.Entries())); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, r.Summary())
		return err
	}
	return NewFormatter(format).Format(w, ReportView{
		Summary: r.Summary(),
		Counts:  r.Counts(),
		Entries: r.Entries(),
	})
}
