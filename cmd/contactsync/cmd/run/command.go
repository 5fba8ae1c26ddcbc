// Package run provides the run command.
package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/cmd/contactsync/cmd/serve"
	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/internal/cmd/output"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/errors"
)

// Flags holds the run command flags.
type Flags struct {
	Now      bool
	DryRun   bool
	Force    bool
	Strategy string
}

// NewCommand creates the run command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Import the roster into the directory",
		Long: `Run fetches the roster, refreshes the directory mirror and applies
the creates, updates and deletes needed to make the directory match.

With --now a single run is made and its report printed. Without it the
command keeps running on the configured schedule, like 'serve'.

Deletes are refused when they would remove more than sync.max_delete_ratio
of the directory in one run; pass --force to apply them anyway.`,
		Example: `  contactsync run --now
  contactsync run --now --dry-run
  contactsync run --now --strategy additive`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, app, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.Now, "now", false, "run once immediately instead of on a schedule")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "plan and report without changing the directory")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "apply deletes even above the safety ratio")
	cmd.Flags().StringVar(&flags.Strategy, "strategy", "", "apply strategy: all, additive, updates-only, additions-only")

	return cmd
}

// Options converts flags into per-run options.
func (f *Flags) Options() ([]contactsync.Option, error) {
	opts := []contactsync.Option{
		contactsync.WithDryRun(f.DryRun),
		contactsync.WithForce(f.Force),
	}
	if f.Strategy != "" {
		strategy, err := differ.ParseStrategy(f.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, contactsync.WithStrategy(strategy))
	}
	return opts, nil
}

func runRun(cmd *cobra.Command, app appcontext.Interface, flags *Flags) error {
	opts, err := flags.Options()
	if err != nil {
		return err
	}

	s, err := app.Syncer()
	if err != nil {
		return err
	}

	if !flags.Now {
		return serve.Loop(cmd.Context(), app, s, app.RunInterval(), opts...)
	}

	r, err := s.Run(cmd.Context(), opts...)
	if r != nil {
		format := output.DetectFormat(app.OutputFormat())
		if werr := output.WriteReport(cmd.OutOrStdout(), format, r); werr != nil {
			return werr
		}
	}

	var runErr *errors.RunError
	if errors.As(err, &runErr) && runErr.Stage == errors.StageSafety {
		return fmt.Errorf("%w (rerun with --force to apply)", err)
	}
	if err != nil {
		return err
	}
	if r.Failed() {
		return fmt.Errorf("%d directory changes failed, see the report above", r.Counts().Failed)
	}
	return nil
}
