package contactsync

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/report"
	"github.com/agentstation/contactsync/pkg/roster"
)

// Syncer runs the full pipeline: fetch the roster, parse it, reconcile and
// notify. At most one run is in flight at a time.
type Syncer struct {
	creds  CredentialProvider
	dir    Directory
	mirror mirror.Mirror
	source RosterSource

	opts  []Option
	base  *options
	sem   *semaphore.Weighted
	hooks *hooks

	// auto run state
	mu         sync.Mutex
	ticker     *time.Ticker
	stopCh     chan struct{}
	autoCancel context.CancelFunc
}

// New creates a Syncer. The options apply to every run and may be
// overridden per run.
func New(creds CredentialProvider, dir Directory, m mirror.Mirror, source RosterSource, opts ...Option) (*Syncer, error) {
	switch {
	case creds == nil:
		return nil, errors.NewValidationError("credentials", nil, "credential provider is required")
	case dir == nil:
		return nil, errors.NewValidationError("directory", nil, "directory client is required")
	case m == nil:
		return nil, errors.NewValidationError("mirror", nil, "mirror is required")
	case source == nil:
		return nil, errors.NewValidationError("source", nil, "roster source is required")
	}

	s := &Syncer{
		creds:  creds,
		dir:    dir,
		mirror: m,
		source: source,
		opts:   opts,
		sem:    semaphore.NewWeighted(1),
		hooks:  newHooks(),
		stopCh: make(chan struct{}),
	}

	base, err := s.options()
	if err != nil {
		return nil, err
	}
	s.base = base
	return s, nil
}

func (s *Syncer) options(extra ...Option) (*options, error) {
	all := make([]Option, 0, len(s.opts)+len(extra)+1)
	all = append(all, s.opts...)
	all = append(all, extra...)
	all = append(all, withHooks(s.hooks))
	return defaults().apply(all...)
}

// Mirror returns the mirror the Syncer reconciles against.
func (s *Syncer) Mirror() mirror.Mirror {
	return s.mirror
}

// Run executes one full run. It returns errors.ErrRunInProgress without doing
// anything when another run holds the Syncer. A fatal stage failure is
// returned as a *errors.RunError alongside the report, which is still
// delivered to the notifier. Panics are recovered into a RunError.
func (s *Syncer) Run(ctx context.Context, opts ...Option) (r *report.Report, err error) {
	if !s.sem.TryAcquire(1) {
		return nil, errors.ErrRunInProgress
	}
	defer s.sem.Release(1)

	o, err := s.options(opts...)
	if err != nil {
		return nil, err
	}
	if o.logger != nil {
		ctx = logging.WithLogger(ctx, o.logger)
	}
	runID := o.now().UTC().Format(constants.TimeFormatRunID)
	ctx = logging.WithRunID(ctx, runID)
	ctx, end := o.metrics.StartRun(ctx, runID)
	r = o.newReport()
	logger := logging.FromContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			err = abort(ctx, r, errors.NewRunError(errors.StageInternal, fmt.Errorf("panic: %v", p)))
			s.notify(ctx, o, r)
		}
		end(err)
	}()

	logger.Info().Msg("------ START CONTACT IMPORT --------")
	defer logger.Info().Msg("------ END CONTACT IMPORT --------")

	plan, err := s.plan(ctx, o, r)
	if err != nil {
		err = abort(ctx, r, err)
	} else {
		execute(ctx, plan, s.dir, s.mirror, o, r)
		s.flush(ctx, r)
	}

	s.notify(ctx, o, r)
	return r, err
}

// Plan runs every stage up to the safety check and returns the plan without
// applying it. The mirror is refreshed as a side effect.
func (s *Syncer) Plan(ctx context.Context, opts ...Option) (*differ.Plan, *report.Report, error) {
	if !s.sem.TryAcquire(1) {
		return nil, nil, errors.ErrRunInProgress
	}
	defer s.sem.Release(1)

	o, err := s.options(opts...)
	if err != nil {
		return nil, nil, err
	}
	if o.logger != nil {
		ctx = logging.WithLogger(ctx, o.logger)
	}
	r := o.newReport()

	plan, err := s.plan(ctx, o, r)
	if err != nil {
		return nil, r, abort(ctx, r, err)
	}
	s.flush(ctx, r)
	return plan, r, nil
}

func (s *Syncer) plan(ctx context.Context, o *options, r *report.Report) (*differ.Plan, error) {
	stageCtx, span := startStage(ctx, o, errors.StageTransfer)
	data, err := s.source.FetchRoster(stageCtx)
	span.End()
	if err != nil {
		return nil, errors.NewRunError(errors.StageTransfer, err)
	}
	logging.FromContext(stageCtx).Debug().Int("bytes", len(data)).Msg("Roster transferred")

	rows, err := roster.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewRunError(errors.StageParse, err)
	}

	return prepare(ctx, rows, s.creds, s.dir, s.mirror, o, r)
}

// flush makes a durable mirror's writes stick. A failure is only a warning:
// the next run rebuilds the mirror from the directory anyway.
func (s *Syncer) flush(ctx context.Context, r *report.Report) {
	p, ok := s.mirror.(mirror.Persistent)
	if !ok {
		return
	}
	if err := p.Flush(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to flush mirror")
		r.Warn("", "Mirror could not be saved: "+err.Error())
	}
}

// notify delivers r on a best-effort basis.
func (s *Syncer) notify(ctx context.Context, o *options, r *report.Report) {
	logger := logging.FromContext(ctx)
	if !r.HasContent() {
		logger.Info().Msg("No changes found.")
		return
	}
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(context.WithoutCancel(ctx), r); err != nil {
		logger.Warn().Err(err).Msg("Failed to send report")
	}
}
