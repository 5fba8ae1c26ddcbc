// Package serve provides the serve command, which runs the pipeline on a schedule.
package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/pkg/errors"
)

// NewCommand creates the serve command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Run the import now and then on a schedule",
		Long: `Serve runs one import immediately and then one every interval until
interrupted. A run that is still going when the next one is due causes
that next one to be skipped.`,
		Example: `  contactsync serve
  contactsync serve --interval 30m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval == 0 {
				interval = app.RunInterval()
			}
			s, err := app.Syncer()
			if err != nil {
				return err
			}
			return Loop(cmd.Context(), app, s, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (default from schedule.interval)")

	return cmd
}

// Loop runs s once, then every interval until ctx is done.
func Loop(ctx context.Context, app appcontext.Interface, s *contactsync.Syncer, interval time.Duration, opts ...contactsync.Option) error {
	logger := app.Logger()
	if interval <= 0 {
		return errors.NewValidationError("interval", interval, "must be positive")
	}

	logger.Info().Dur("interval", interval).Msg("Starting scheduled imports")

	if _, err := s.Run(ctx, opts...); err != nil {
		logger.Error().Err(err).Msg("Initial run failed")
	}

	if err := s.AutoRunOn(interval, opts...); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("Stopping scheduled imports")
	return s.AutoRunOff()
}
