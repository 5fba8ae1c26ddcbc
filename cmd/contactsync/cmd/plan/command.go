// Package plan provides the plan command.
package plan

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/contactsync"
	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/internal/cmd/alerts"
	"github.com/agentstation/contactsync/internal/cmd/output"
	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/report"
)

// NewCommand creates the plan command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		strategy string
		force    bool
	)

	cmd := &cobra.Command{
		Use:     "plan",
		GroupID: "core",
		Short:   "Show the changes the next run would make",
		Long: `Plan fetches the roster and refreshes the directory mirror, then
prints the creates, updates and deletes a run would apply. Nothing is
changed in the directory.`,
		Example: `  contactsync plan
  contactsync plan --strategy additive -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := differ.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			s, err := app.Syncer()
			if err != nil {
				return err
			}

			p, r, err := s.Plan(cmd.Context(),
				contactsync.WithStrategy(parsed),
				contactsync.WithForce(force),
			)
			if err != nil {
				return err
			}

			return write(cmd, output.DetectFormat(app.OutputFormat()), p, r)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "apply strategy: all, additive, updates-only, additions-only")
	cmd.Flags().BoolVar(&force, "force", false, "show the plan even when its deletes exceed the safety ratio")

	return cmd
}

// View is the structured form of a plan.
type View struct {
	Summary differ.Summary `json:"summary" yaml:"summary"`
	Actions []ActionView   `json:"actions" yaml:"actions"`
	Notes   []report.Entry `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ActionView is one planned action.
type ActionView struct {
	Kind    differ.ActionKind `json:"kind" yaml:"kind"`
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Changes []string          `json:"changes,omitempty" yaml:"changes,omitempty"`
}

func newView(p *differ.Plan, r *report.Report) View {
	v := View{Summary: p.Summary, Actions: []ActionView{}, Notes: r.Entries()}
	for _, a := range p.Actions {
		av := ActionView{Kind: a.Kind, ID: a.ID, Name: a.Contact().Label()}
		for _, c := range a.Changes {
			av.Changes = append(av.Changes, c.String())
		}
		v.Actions = append(v.Actions, av)
	}
	return v
}

func write(cmd *cobra.Command, format output.Format, p *differ.Plan, r *report.Report) error {
	w := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewFormatter(format).Format(w, newView(p, r))
	}

	p.Print(w)
	aw := alerts.NewWriter(w, format)
	for _, e := range r.Entries() {
		if err := aw.Write(alerts.NewWarning(e.Message)); err != nil {
			return err
		}
	}
	return nil
}
