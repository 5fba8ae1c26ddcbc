// Package reconcile applies a plan to the remote directory.
//
// Every action is independent: a failure is recorded and execution moves on
// to the next action. The mirror is only changed after the directory has
// accepted a change, so a failed action leaves it at the last known-good
// state and the next run's diff re-derives the same action.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/report"
)

var errNoRef = fmt.Errorf("no directory reference: %w", errors.ErrNotFound)

// Directory is the mutation side of the remote directory.
type Directory interface {
	// CreateDirectoryEntry creates c and returns the directory's reference for it.
	CreateDirectoryEntry(ctx context.Context, c contacts.Contact) (string, error)

	// UpdateDirectoryEntry overwrites the entry ref with c.
	UpdateDirectoryEntry(ctx context.Context, ref string, c contacts.Contact) error

	// DeleteDirectoryEntry removes the entry ref.
	DeleteDirectoryEntry(ctx context.Context, ref string) error
}

// Hooks receives successful changes.
type Hooks interface {
	ContactCreated(c contacts.Contact)
	ContactUpdated(from, to contacts.Contact)
	ContactDeleted(c contacts.Contact)
}

// Recorder observes every action outcome, e.g. for metrics.
type Recorder interface {
	RecordAction(ctx context.Context, kind differ.ActionKind, outcome report.Outcome)
}

// Executor applies plans. Directory and Mirror are required; the rest are optional.
type Executor struct {
	Directory Directory
	Mirror    mirror.Mirror
	Report    *report.Report
	Hooks     Hooks
	Recorder  Recorder
	Logger    *zerolog.Logger

	// Service names the directory in report messages.
	Service string

	// DryRun records every action as planned without calling the directory.
	DryRun bool
}

// Execute processes the plan in order and returns the report it wrote to.
// Once ctx is done no further actions are started; the rest are recorded as
// skipped. An action already in flight finishes or times out on its own.
func (e *Executor) Execute(ctx context.Context, plan *differ.Plan) *report.Report {
	if e.Report == nil {
		e.Report = report.New()
	}
	if e.Service == "" {
		e.Service = "Zoom"
	}
	if e.Logger != nil {
		ctx = logging.WithLogger(ctx, e.Logger)
	}
	logger := logging.FromContext(ctx)

	for i, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			e.skipRemaining(ctx, logger, plan.Actions[i:], err)
			break
		}

		actionCtx := logging.WithAction(logging.WithContactID(ctx, action.ID), string(action.Kind))
		var outcome report.Outcome
		switch {
		case e.DryRun:
			outcome = e.plan(action)
		case action.Kind == differ.ActionCreate:
			outcome = e.create(actionCtx, action)
		case action.Kind == differ.ActionUpdate:
			outcome = e.update(actionCtx, action)
		case action.Kind == differ.ActionDelete:
			outcome = e.delete(actionCtx, action)
		default:
			logger.Warn().Str("kind", string(action.Kind)).Msg("Unknown action kind, ignoring")
			continue
		}
		e.record(ctx, action.Kind, outcome)
	}

	return e.Report
}

func (e *Executor) create(ctx context.Context, a differ.Action) report.Outcome {
	logger := logging.FromContext(ctx)
	label := a.To.Label()
	logger.Info().Msgf("New contact %s, Adding...", label)

	ref, err := e.Directory.CreateDirectoryEntry(inFlight(ctx), a.To)
	if err != nil {
		return e.fail(ctx, a, errors.NewActionError(string(a.Kind), a.ID, "", err),
			fmt.Sprintf("Failed to add %s to %s.", label, e.Service))
	}

	created := a.To.WithRef(ref)
	if ref == "" {
		logger.Warn().Msg("Directory returned no reference for the new contact, the next refresh will pick it up")
	}
	e.store(ctx, a.ID, e.Mirror.Put(created))

	msg := fmt.Sprintf("%s added to %s.", label, e.Service)
	logger.Info().Msg(msg)
	e.Report.Add(report.Entry{Kind: report.KindCreate, Outcome: report.OutcomeApplied, ID: a.ID, Name: a.To.Name, Message: msg})
	if e.Hooks != nil {
		e.Hooks.ContactCreated(created)
	}
	return report.OutcomeApplied
}

func (e *Executor) update(ctx context.Context, a differ.Action) report.Outcome {
	logger := logging.FromContext(ctx)
	label := a.To.Label()
	logger.Info().Msgf("Changes with contact %s, Updating...", a.From.Label())
	for _, change := range a.Changes {
		logger.Debug().Str("field", change.Path).Str("from", change.OldValue).Str("to", change.NewValue).Msg("Field changed")
	}

	failMsg := fmt.Sprintf("Failed to update %s to %s.", label, e.Service)
	if a.DirectoryRef == "" {
		return e.fail(ctx, a, errors.NewActionError(string(a.Kind), a.ID, "", errNoRef), failMsg)
	}

	if err := e.Directory.UpdateDirectoryEntry(inFlight(ctx), a.DirectoryRef, a.To); err != nil {
		return e.fail(ctx, a, errors.NewActionError(string(a.Kind), a.ID, a.DirectoryRef, err), failMsg)
	}

	updated := a.To.WithRef(a.DirectoryRef)
	e.store(ctx, a.ID, e.Mirror.Put(updated))

	msg := fmt.Sprintf("Updated %s record for %s", e.Service, label)
	logger.Info().Msg(msg)
	e.Report.Add(report.Entry{Kind: report.KindUpdate, Outcome: report.OutcomeApplied, ID: a.ID, Name: a.To.Name, Message: msg})
	if e.Hooks != nil {
		e.Hooks.ContactUpdated(a.From, updated)
	}
	return report.OutcomeApplied
}

func (e *Executor) delete(ctx context.Context, a differ.Action) report.Outcome {
	logger := logging.FromContext(ctx)
	logger.Info().Msgf("Contact %s not found in roster, Deleting...", a.From.Label())

	if a.DirectoryRef == "" {
		return e.fail(ctx, a, errors.NewActionError(string(a.Kind), a.ID, "", errNoRef),
			fmt.Sprintf("Failed to delete %s from %s.", a.From.Label(), e.Service))
	}
	failMsg := fmt.Sprintf("Failed to delete %s record with external ID %s.", e.Service, a.DirectoryRef)

	if err := e.Directory.DeleteDirectoryEntry(inFlight(ctx), a.DirectoryRef); err != nil {
		return e.fail(ctx, a, errors.NewActionError(string(a.Kind), a.ID, a.DirectoryRef, err), failMsg)
	}

	e.store(ctx, a.ID, e.Mirror.Delete(a.ID))

	msg := fmt.Sprintf("Deleted %s record with external ID %s", e.Service, a.DirectoryRef)
	logger.Info().Msg(msg)
	e.Report.Add(report.Entry{Kind: report.KindDelete, Outcome: report.OutcomeApplied, ID: a.ID, Name: a.From.Name, Message: msg})
	if e.Hooks != nil {
		e.Hooks.ContactDeleted(a.From)
	}
	return report.OutcomeApplied
}

// plan records a dry-run action.
func (e *Executor) plan(a differ.Action) report.Outcome {
	msg := fmt.Sprintf("Would %s %s", a.Kind, a.Contact().Label())
	if len(a.Changes) > 0 {
		msg += fmt.Sprintf(" (%d fields changed)", len(a.Changes))
	}
	e.Report.Add(report.Entry{
		Kind:    kindOf(a.Kind),
		Outcome: report.OutcomePlanned,
		ID:      a.ID,
		Name:    a.Contact().Name,
		Message: msg,
	})
	return report.OutcomePlanned
}

// fail records a failed action. The mirror is left untouched.
func (e *Executor) fail(ctx context.Context, a differ.Action, err *errors.ActionError, prefix string) report.Outcome {
	logging.FromContext(ctx).Error().Err(err).Msg("Action failed")
	e.Report.Add(report.Entry{
		Kind:    kindOf(a.Kind),
		Outcome: report.OutcomeFailed,
		ID:      a.ID,
		Name:    a.Contact().Name,
		Message: prefix + " " + err.Detail(),
	})
	return report.OutcomeFailed
}

// store handles the mirror write that follows a successful remote change.
// The directory already holds the change, so the action stays applied.
func (e *Executor) store(ctx context.Context, id string, err error) {
	if err == nil {
		return
	}
	logging.FromContext(ctx).Warn().Err(err).Msg("Mirror write failed after directory change")
	e.Report.Warn(id, fmt.Sprintf("Mirror not updated for %s: %v", id, err))
}

func (e *Executor) skipRemaining(ctx context.Context, logger *zerolog.Logger, rest []differ.Action, cause error) {
	logger.Warn().Err(cause).Int("remaining", len(rest)).Msg("Run interrupted, skipping remaining actions")
	for _, a := range rest {
		e.Report.Add(report.Entry{
			Kind:    kindOf(a.Kind),
			Outcome: report.OutcomeSkipped,
			ID:      a.ID,
			Name:    a.Contact().Name,
			Message: fmt.Sprintf("Skipped %s of %s: %v", a.Kind, a.Contact().Label(), cause),
		})
		e.record(ctx, a.Kind, report.OutcomeSkipped)
	}
}

func (e *Executor) record(ctx context.Context, kind differ.ActionKind, outcome report.Outcome) {
	if e.Recorder != nil {
		e.Recorder.RecordAction(ctx, kind, outcome)
	}
}

// inFlight detaches a directory call from run cancellation. Cancellation only
// stops new actions; the transport timeout still bounds each call.
func inFlight(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func kindOf(k differ.ActionKind) report.Kind {
	switch k {
	case differ.ActionCreate:
		return report.KindCreate
	case differ.ActionUpdate:
		return report.KindUpdate
	default:
		return report.KindDelete
	}
}
