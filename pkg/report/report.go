// Package report accumulates the human-readable outcome of one run.
//
// A Report is an explicit value owned by a single run. Entries are kept in
// the order they happened; a run in which nothing changed and nothing failed
// leaves the report empty, and an empty report is never sent anywhere.
package report

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
)

// Kind classifies an entry.
type Kind string

const (
	KindRowError Kind = "row_error"
	KindCreate   Kind = "create"
	KindUpdate   Kind = "update"
	KindDelete   Kind = "delete"
	KindWarning  Kind = "warning"
	KindInfo     Kind = "info"
)

// Outcome is the terminal state of an action.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeFailed   Outcome = "failed"
	OutcomePlanned  Outcome = "planned"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRejected Outcome = "rejected"
)

// Entry is one line of the report.
type Entry struct {
	Time    time.Time `json:"time" yaml:"time"`
	Kind    Kind      `json:"kind" yaml:"kind"`
	Outcome Outcome   `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	ID      string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

// Line renders the entry the way it appears in logs and emails.
func (e Entry) Line() string {
	return fmt.Sprintf("%s - %s", e.Time.Format(constants.TimeFormatReport), e.Message)
}

// Counts tallies a report.
type Counts struct {
	Created   int
	Updated   int
	Deleted   int
	Failed    int
	Skipped   int
	Planned   int
	RowErrors int
	Warnings  int
}

// Report is the ordered record of one run.
type Report struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// Option configures a Report.
type Option func(*Report)

// WithClock sets the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(r *Report) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an empty report.
func New(opts ...Option) *Report {
	r := &Report{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends e, stamping it if it carries no time.
func (r *Report) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = r.now()
	}
	r.entries = append(r.entries, e)
}

// AddRowErrors records rejected roster rows.
func (r *Report) AddRowErrors(rowErrs []*errors.RowError) {
	for _, re := range rowErrs {
		r.Add(Entry{
			Kind:    KindRowError,
			Outcome: OutcomeRejected,
			ID:      re.ID,
			Message: "Skipped " + re.Error(),
		})
	}
}

// Warn records a problem that did not change an outcome.
func (r *Report) Warn(id, message string) {
	r.Add(Entry{Kind: KindWarning, ID: id, Message: message})
}

// Entries returns a copy of the entries in order.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of entries.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// HasContent reports whether the run produced anything worth sending.
func (r *Report) HasContent() bool {
	return r.Len() > 0
}

// Counts tallies the entries by kind and outcome.
func (r *Report) Counts() Counts {
	var c Counts
	for _, e := range r.Entries() {
		switch e.Kind {
		case KindRowError:
			c.RowErrors++
			continue
		case KindWarning:
			c.Warnings++
			continue
		case KindInfo:
			continue
		}

		switch e.Outcome {
		case OutcomeApplied:
			switch e.Kind {
			case KindCreate:
				c.Created++
			case KindUpdate:
				c.Updated++
			case KindDelete:
				c.Deleted++
			}
		case OutcomeFailed:
			c.Failed++
		case OutcomeSkipped:
			c.Skipped++
		case OutcomePlanned:
			c.Planned++
		}
	}
	return c
}

// Failed reports whether any action failed.
func (r *Report) Failed() bool {
	return r.Counts().Failed > 0
}

// Text renders the report one entry per line.
func (r *Report) Text() string {
	var b strings.Builder
	for _, e := range r.Entries() {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// HTML renders the report as an email body: escaped messages separated by <br>.
func (r *Report) HTML() string {
	var b strings.Builder
	for _, e := range r.Entries() {
		b.WriteString(html.EscapeString(e.Message))
		b.WriteString("<br>")
	}
	return b.String()
}

// Summary returns a one-line tally.
func (r *Report) Summary() string {
	c := r.Counts()
	parts := []string{
		fmt.Sprintf("%d created", c.Created),
		fmt.Sprintf("%d updated", c.Updated),
		fmt.Sprintf("%d deleted", c.Deleted),
		fmt.Sprintf("%d failed", c.Failed),
	}
	if c.Planned > 0 {
		parts = append(parts, fmt.Sprintf("%d planned", c.Planned))
	}
	if c.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", c.Skipped))
	}
	if c.RowErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d row errors", c.RowErrors))
	}
	if c.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", c.Warnings))
	}
	return strings.Join(parts, ", ")
}
