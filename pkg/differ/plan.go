package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/errors"
)

// ActionKind represents the type of change an action applies.
type ActionKind string

const (
	// ActionCreate adds a contact that is missing from the directory.
	ActionCreate ActionKind = "create"
	// ActionUpdate overwrites a directory contact that differs from the roster.
	ActionUpdate ActionKind = "update"
	// ActionDelete removes a directory contact the roster no longer lists.
	ActionDelete ActionKind = "delete"
)

// Action is one step of a Plan.
type Action struct {
	Kind         ActionKind
	ID           string                 // Roster id
	DirectoryRef string                 // Directory id, empty for creates
	From         contacts.Contact       // Observed contact (update, delete)
	To           contacts.Contact       // Desired contact (create, update)
	Changes      []contacts.FieldChange // Field differences for updates
}

// Contact returns the contact the action is about: the desired one for
// creates and updates, the observed one for deletes.
func (a Action) Contact() contacts.Contact {
	if a.Kind == ActionDelete {
		return a.From
	}
	return a.To
}

// String returns a one-line description of the action.
func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Contact().Label())
}

// Plan is the ordered list of actions that makes the directory match the roster.
// Creates and updates come first in roster order, deletes last in id order.
type Plan struct {
	Actions  []Action
	Summary  Summary
	Observed int // Number of contacts in the mirror when the plan was made
}

// Summary provides summary statistics for a plan.
type Summary struct {
	Creates   int
	Updates   int
	Deletes   int
	Unchanged int
	Total     int
}

// calculateSummary counts the actions of a plan. Unchanged is carried over
// since it cannot be derived from the actions.
func calculateSummary(actions []Action, unchanged int) Summary {
	s := Summary{Unchanged: unchanged}
	for _, a := range actions {
		switch a.Kind {
		case ActionCreate:
			s.Creates++
		case ActionUpdate:
			s.Updates++
		case ActionDelete:
			s.Deletes++
		}
	}
	s.Total = s.Creates + s.Updates + s.Deletes
	return s
}

// IsEmpty returns true if the plan contains no actions.
func (p *Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}

// HasChanges returns true if the plan contains any actions.
func (p *Plan) HasChanges() bool {
	return !p.IsEmpty()
}

// DeleteRatio returns the share of observed contacts the plan deletes.
func (p *Plan) DeleteRatio() float64 {
	if p.Observed == 0 {
		return 0
	}
	return float64(p.Summary.Deletes) / float64(p.Observed)
}

// String returns a human-readable summary of the plan.
func (p *Plan) String() string {
	if p.IsEmpty() {
		return "No changes found."
	}

	var parts []string
	if p.Summary.Creates > 0 {
		parts = append(parts, fmt.Sprintf("%d to create", p.Summary.Creates))
	}
	if p.Summary.Updates > 0 {
		parts = append(parts, fmt.Sprintf("%d to update", p.Summary.Updates))
	}
	if p.Summary.Deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d to delete", p.Summary.Deletes))
	}

	return fmt.Sprintf("Plan: %s (Total: %d changes, %d unchanged)",
		strings.Join(parts, ", "), p.Summary.Total, p.Summary.Unchanged)
}

// Print writes a detailed, human-readable view of the plan to w.
func (p *Plan) Print(w io.Writer) {
	fmt.Fprintln(w, p.String())
	if p.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))

	p.printKind(w, ActionCreate, "➕ Contacts to create")
	p.printKind(w, ActionUpdate, "🔄 Contacts to update")
	p.printKind(w, ActionDelete, "⚠️  Contacts to delete")
}

func (p *Plan) printKind(w io.Writer, kind ActionKind, title string) {
	var matched []Action
	for _, a := range p.Actions {
		if a.Kind == kind {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s (%d):\n", title, len(matched))
	for _, a := range matched {
		fmt.Fprintf(w, "  • %s\n", a.Contact().Label())
		for _, change := range a.Changes {
			fmt.Fprintf(w, "    - %s\n", change)
		}
	}
}

// ApplyStrategy represents how to apply a plan.
type ApplyStrategy string

const (
	// ApplyAll applies all actions including deletes.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditive applies creates and updates, never deletes.
	ApplyAdditive ApplyStrategy = "additive"

	// ApplyUpdatesOnly only applies updates to existing contacts.
	ApplyUpdatesOnly ApplyStrategy = "updates-only"

	// ApplyAdditionsOnly only applies creates.
	ApplyAdditionsOnly ApplyStrategy = "additions-only"
)

// Strategies lists the accepted apply strategies.
var Strategies = []ApplyStrategy{ApplyAll, ApplyAdditive, ApplyUpdatesOnly, ApplyAdditionsOnly}

// ParseStrategy validates a strategy name. The empty string means ApplyAll.
func ParseStrategy(s string) (ApplyStrategy, error) {
	if s == "" {
		return ApplyAll, nil
	}
	for _, strategy := range Strategies {
		if string(strategy) == strings.ToLower(s) {
			return strategy, nil
		}
	}
	return "", errors.NewValidationError("strategy", s,
		fmt.Sprintf("must be one of %v", Strategies))
}

// allows reports whether the strategy lets an action of kind through.
func (s ApplyStrategy) allows(kind ActionKind) bool {
	switch s {
	case ApplyAdditive:
		return kind != ActionDelete
	case ApplyUpdatesOnly:
		return kind == ActionUpdate
	case ApplyAdditionsOnly:
		return kind == ActionCreate
	default:
		return true
	}
}

// Filter returns the plan restricted to the actions the strategy allows,
// preserving order.
func (p *Plan) Filter(strategy ApplyStrategy) *Plan {
	if strategy == ApplyAll || strategy == "" {
		return p
	}

	filtered := &Plan{Observed: p.Observed}
	for _, a := range p.Actions {
		if strategy.allows(a.Kind) {
			filtered.Actions = append(filtered.Actions, a)
		}
	}
	filtered.Summary = calculateSummary(filtered.Actions, p.Summary.Unchanged)

	return filtered
}
