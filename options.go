package contactsync

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync/internal/telemetry"
	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/report"
)

// Option configures Reconcile and Syncer.
type Option func(*options) error

type options struct {
	strategy       differ.ApplyStrategy
	dryRun         bool
	force          bool
	maxDeleteRatio float64
	pageSize       int
	service        string
	now            func() time.Time
	logger         *zerolog.Logger
	report         *report.Report
	notifier       Notifier
	metrics        *telemetry.Metrics
	hooks          *hooks
	runTimeout     time.Duration
}

func defaults() *options {
	return &options{
		strategy:   differ.ApplyAll,
		pageSize:   constants.DefaultPageSize,
		service:    "Zoom",
		now:        time.Now,
		runTimeout: constants.RunTimeout,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewMetrics()
	}
	return o, nil
}

// newReport returns the caller's report or a fresh one on the configured clock.
func (o *options) newReport() *report.Report {
	if o.report != nil {
		return o.report
	}
	return report.New(report.WithClock(o.now))
}

// WithStrategy restricts which kinds of actions are applied.
func WithStrategy(strategy differ.ApplyStrategy) Option {
	return func(o *options) error {
		parsed, err := differ.ParseStrategy(string(strategy))
		if err != nil {
			return err
		}
		o.strategy = parsed
		return nil
	}
}

// WithDryRun plans without calling the directory.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithForce disables the delete-ratio safety check.
func WithForce(enabled bool) Option {
	return func(o *options) error {
		o.force = enabled
		return nil
	}
}

// WithMaxDeleteRatio sets the largest share of observed contacts one plan may
// delete. Zero, the default, disables the check.
func WithMaxDeleteRatio(ratio float64) Option {
	return func(o *options) error {
		if ratio < 0 || ratio > 1 {
			return errors.NewValidationError("max_delete_ratio", ratio, "must be between 0 and 1")
		}
		o.maxDeleteRatio = ratio
		return nil
	}
}

// WithPageSize sets the directory listing page size.
func WithPageSize(n int) Option {
	return func(o *options) error {
		if n <= 0 || n > constants.MaxPageSize {
			return errors.NewValidationError("page_size", n,
				fmt.Sprintf("must be between 1 and %d", constants.MaxPageSize))
		}
		o.pageSize = n
		return nil
	}
}

// WithService names the directory in report messages.
func WithService(name string) Option {
	return func(o *options) error {
		if name != "" {
			o.service = name
		}
		return nil
	}
}

// WithClock sets the time source for report entries and run ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithLogger sets the logger used for the run.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithReport appends to an existing report instead of starting a new one.
func WithReport(r *report.Report) Option {
	return func(o *options) error {
		o.report = r
		return nil
	}
}

// WithNotifier sets where Syncer.Run delivers its report.
func WithNotifier(n Notifier) Option {
	return func(o *options) error {
		o.notifier = n
		return nil
	}
}

// WithMetrics sets the telemetry instruments. The default uses the global providers.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithRunTimeout bounds each scheduled run.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("run_timeout", d, "must be positive")
		}
		o.runTimeout = d
		return nil
	}
}

func withHooks(h *hooks) Option {
	return func(o *options) error {
		o.hooks = h
		return nil
	}
}
