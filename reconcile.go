package contactsync

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/reconcile"
	"github.com/agentstation/contactsync/pkg/report"
	"github.com/agentstation/contactsync/pkg/roster"
)

const stageExecute = "execute"

// Reconcile makes the directory match rows and returns the run report.
//
// A credential, refresh or safety failure aborts the run before any action is
// applied; the returned error is then a *errors.RunError and the report
// carries a line describing it. Row and action failures never abort: they are
// recorded in the report and Reconcile returns a nil error.
//
// dir must authorize its calls with creds, see CredentialProvider.
func Reconcile(ctx context.Context, rows []roster.Row, creds CredentialProvider, dir Directory, m mirror.Mirror, opts ...Option) (*report.Report, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.logger != nil {
		ctx = logging.WithLogger(ctx, o.logger)
	}
	r := o.newReport()

	plan, err := prepare(ctx, rows, creds, dir, m, o, r)
	if err != nil {
		return r, abort(ctx, r, err)
	}
	execute(ctx, plan, dir, m, o, r)
	return r, nil
}

// prepare runs every stage up to and including the safety check.
func prepare(ctx context.Context, rows []roster.Row, creds CredentialProvider, dir Directory, m mirror.Mirror, o *options, r *report.Report) (*differ.Plan, error) {
	if creds == nil || dir == nil || m == nil {
		return nil, errors.NewRunError(errors.StageInternal,
			&errors.ValidationError{Message: "credential provider, directory and mirror are required"})
	}
	logger := logging.FromContext(ctx)

	stageCtx, span := startStage(ctx, o, errors.StageCredential)
	_, err := creds.AcquireCredential(stageCtx)
	span.End()
	if err != nil {
		return nil, errors.NewRunError(errors.StageCredential, err)
	}

	stageCtx, span = startStage(ctx, o, errors.StageRefresh)
	logging.FromContext(stageCtx).Info().Msg("Refreshing directory mirror")
	stats, err := mirror.Refresh(stageCtx, dir, m, mirror.WithPageSize(o.pageSize))
	span.End()
	if err != nil {
		return nil, errors.NewRunError(errors.StageRefresh, err)
	}
	if stats.Duplicates > 0 {
		r.Warn("", fmt.Sprintf("%s holds %d duplicate external contacts, kept the first of each", o.service, stats.Duplicates))
	}
	if n, err := m.Len(); err == nil {
		o.metrics.RecordMirrorSize(ctx, n)
	}

	desired, rowErrs := roster.Load(rows)
	r.AddRowErrors(rowErrs)
	for _, re := range rowErrs {
		logger.Warn().Int("line", re.Line).Str("contact_id", re.ID).Msg(re.Reason)
	}
	logger.Info().Msgf("%d records processed from CSV.", len(rows))

	plan, err := differ.New(differ.WithTracking(true)).Plan(desired, m)
	if err != nil {
		return nil, errors.NewRunError(errors.StageInternal, err)
	}
	plan = plan.Filter(o.strategy)
	logger.Info().
		Int("creates", plan.Summary.Creates).
		Int("updates", plan.Summary.Updates).
		Int("deletes", plan.Summary.Deletes).
		Int("unchanged", plan.Summary.Unchanged).
		Str("strategy", string(o.strategy)).
		Msg(plan.String())

	if !o.force && o.maxDeleteRatio > 0 && plan.DeleteRatio() > o.maxDeleteRatio {
		return nil, errors.NewRunError(errors.StageSafety, errors.NewValidationError(
			"max_delete_ratio", plan.DeleteRatio(),
			fmt.Sprintf("plan deletes %d of %d directory contacts, above the %.0f%% limit",
				plan.Summary.Deletes, plan.Observed, o.maxDeleteRatio*100)))
	}

	return plan, nil
}

func execute(ctx context.Context, plan *differ.Plan, dir Directory, m mirror.Mirror, o *options, r *report.Report) {
	stageCtx, span := startStage(ctx, o, stageExecute)
	defer span.End()

	ex := &reconcile.Executor{
		Directory: dir,
		Mirror:    m,
		Report:    r,
		Recorder:  o.metrics,
		Service:   o.service,
		DryRun:    o.dryRun,
	}
	if o.hooks != nil {
		ex.Hooks = o.hooks
	}
	ex.Execute(stageCtx, plan)

	logging.FromContext(ctx).Info().Msg(r.Summary())
}

// startStage opens the stage span and tags the logger with the stage name.
func startStage(ctx context.Context, o *options, stage string) (context.Context, trace.Span) {
	return o.metrics.StartStage(logging.WithStage(ctx, stage), stage)
}

// abort logs a fatal error and records it in the report.
func abort(ctx context.Context, r *report.Report, err error) error {
	logging.FromContext(ctx).Error().Err(err).Msg("Run aborted")
	r.Add(report.Entry{
		Kind:    report.KindInfo,
		Outcome: report.OutcomeFailed,
		Message: "Contact import failed: " + err.Error(),
	})
	return err
}
