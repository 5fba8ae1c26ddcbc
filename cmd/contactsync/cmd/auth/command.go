// Package auth provides commands for checking directory credentials.
package auth

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/contactsync/internal/appcontext"
	"github.com/agentstation/contactsync/internal/cmd/alerts"
	pkgauth "github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/internal/cmd/output"
	"github.com/agentstation/contactsync/pkg/errors"
)

// NewCommand creates the auth command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		GroupID: "management",
		Short:   "Check directory credentials",
	}

	cmd.AddCommand(newStatusCommand(app))

	return cmd
}

func newStatusCommand(app appcontext.Interface) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether credentials are configured",
		Long: `Status checks the configured account id, client id and secret
without contacting the directory. With --verify a token is also requested
from the token endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := pkgauth.Check(app.Credentials())

			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				if err := output.NewFormatter(format).Format(w, output.AuthTable(status)); err != nil {
					return err
				}
			} else if err := output.NewFormatter(format).Format(w, statusView{
				State:   status.State.String(),
				Summary: status.Summary,
				Missing: status.Missing,
			}); err != nil {
				return err
			}

			if status.State != pkgauth.StateConfigured {
				return errors.NewConfigError("auth", status.Summary, nil)
			}

			if !verify {
				return nil
			}
			token, err := app.CredentialProvider().AcquireCredential(cmd.Context())
			if err != nil {
				return err
			}
			return alerts.NewWriter(w, format).Write(
				alerts.NewSuccess("Token acquired").WithDetails("expires " + token.ExpiresAt.Local().Format("15:04:05")))
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "request a token to prove the credentials work")

	return cmd
}

type statusView struct {
	State   string   `json:"state" yaml:"state"`
	Summary string   `json:"summary" yaml:"summary"`
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}
