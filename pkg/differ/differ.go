// Package differ compares the desired roster against the observed directory
// and produces the plan of actions that reconciles them.
package differ

import (
	"fmt"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/roster"
)

// Differ handles change detection between the roster and the directory.
type Differ interface {
	// Plan compares the desired set with the observed mirror. The mirror is
	// only read.
	Plan(desired *roster.Desired, observed mirror.Mirror) (*Plan, error)
}

// differ is the default implementation of Differ.
type differ struct {
	tracking bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		tracking: true,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Compute plans with a default Differ.
func Compute(desired *roster.Desired, observed mirror.Mirror) (*Plan, error) {
	return New().Plan(desired, observed)
}

// Plan implements Differ. Every id in the union of both sets yields exactly
// one outcome: create, update, delete or unchanged.
func (diff *differ) Plan(desired *roster.Desired, observed mirror.Mirror) (*Plan, error) {
	existing, err := observed.All()
	if err != nil {
		return nil, fmt.Errorf("reading mirror: %w", err)
	}

	existingMap := make(map[string]contacts.Contact, len(existing))
	for _, c := range existing {
		existingMap[c.ID] = c
	}

	plan := &Plan{Observed: len(existing)}
	unchanged := 0

	// Creates and updates, in roster order
	for _, want := range desired.Contacts() {
		have, exists := existingMap[want.ID]
		if !exists {
			plan.Actions = append(plan.Actions, Action{
				Kind: ActionCreate,
				ID:   want.ID,
				To:   want,
			})
			continue
		}

		if contacts.Equal(have, want) {
			unchanged++
			continue
		}

		action := Action{
			Kind:         ActionUpdate,
			ID:           want.ID,
			DirectoryRef: have.DirectoryRef,
			From:         have,
			To:           want.WithRef(have.DirectoryRef),
		}
		if diff.tracking {
			action.Changes = contacts.Diff(have, want)
		}
		plan.Actions = append(plan.Actions, action)
	}

	// Deletes need the complete desired membership, so they always come last
	for _, have := range existing {
		if desired.Has(have.ID) {
			continue
		}
		plan.Actions = append(plan.Actions, Action{
			Kind:         ActionDelete,
			ID:           have.ID,
			DirectoryRef: have.DirectoryRef,
			From:         have,
		})
	}

	plan.Summary = calculateSummary(plan.Actions, unchanged)

	return plan, nil
}
