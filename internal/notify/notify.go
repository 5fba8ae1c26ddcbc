// Package notify delivers run reports. Delivery is best effort: callers log
// a failed notification and carry on.
package notify

import (
	"context"
	stderrors "errors"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync/pkg/report"
)

// Notifier sends a report somewhere.
type Notifier interface {
	Notify(ctx context.Context, r *report.Report) error
}

// Log writes every report entry to a logger.
type Log struct {
	Logger *zerolog.Logger
}

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, r *report.Report) error {
	if l.Logger == nil {
		return nil
	}
	for _, e := range r.Entries() {
		ev := l.Logger.Info()
		if e.Outcome == report.OutcomeFailed || e.Kind == report.KindRowError {
			ev = l.Logger.Warn()
		}
		ev.Str("kind", string(e.Kind)).
			Str("outcome", string(e.Outcome)).
			Str("contact_id", e.ID).
			Msg(e.Message)
	}
	l.Logger.Info().Msg(r.Summary())
	return nil
}

// Multi fans a report out to several notifiers. Every notifier is tried;
// the errors are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, r *report.Report) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
