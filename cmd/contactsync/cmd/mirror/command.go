// Package mirror provides commands for inspecting the local directory mirror.
package mirror

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/internal/cmd/alerts"
	"github.com/agentstation/contactsync/internal/cmd/output"
	pkgmirror "github.com/agentstation/contactsync/pkg/mirror"
)

// NewCommand creates the mirror command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mirror",
		GroupID: "management",
		Short:   "Inspect the local mirror of the directory",
		Long: `The mirror holds the directory's contacts as of the last refresh,
keyed by roster id. Every run rebuilds it from the directory before
planning, so resetting it is always safe.`,
	}

	cmd.AddCommand(newShowCommand(app))
	cmd.AddCommand(newResetCommand(app))

	return cmd
}

func newShowCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the contacts in the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.Mirror()
			if err != nil {
				return err
			}
			cs, err := m.All()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())
			if format != output.FormatTable {
				return output.NewFormatter(format).Format(w, cs)
			}

			if len(cs) == 0 {
				return alerts.NewWriter(w, format).Write(alerts.NewInfo("Mirror is empty."))
			}
			if err := output.NewFormatter(format).Format(w, output.ContactsTable(cs)); err != nil {
				return err
			}
			fmt.Fprintf(w, "%d contacts\n", len(cs))
			return nil
		},
	}
}

func newResetCommand(app appcontext.Interface) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset the mirror without --yes")
			}
			m, err := app.Mirror()
			if err != nil {
				return err
			}
			if err := m.Replace(nil); err != nil {
				return err
			}
			if p, ok := m.(pkgmirror.Persistent); ok {
				if err := p.Flush(); err != nil {
					return err
				}
			}
			format := output.DetectFormat(app.OutputFormat())
			return alerts.NewWriter(cmd.OutOrStdout(), format).Write(alerts.NewSuccess("Mirror reset"))
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")

	return cmd
}
