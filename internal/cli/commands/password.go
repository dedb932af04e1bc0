package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/crud"
)

func newPasswordCommand(opts *rootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "password <model> <hash> <field>",
		Short: "Change or verify a stored password",
		Long: `Prompt for the current password and a new one, and store the new hash.
With --verify, only check the current password.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			model, hash, field := args[0], args[1], args[2]
			out := cmd.OutOrStdout()

			current, err := app.prompter.Password("Current password", "")
			if err != nil {
				return err
			}

			if verify {
				ok, err := app.Ops.VerifyPassword(ctx, model, hash, field, current)
				if err != nil {
					return reportLookupError(cmd, app, model, hash, err)
				}
				if !ok {
					fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("password does not match", app.NoColor))
					return errReported
				}
				ui.WriteSuccess(out, "password matches", app.NoColor)
				return nil
			}

			next, err := app.prompter.Password("New password", "")
			if err != nil {
				return err
			}

			if err := app.Ops.UpdatePassword(ctx, model, hash, field, current, next); err != nil {
				if crud.IsPasswordMismatch(err) {
					fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("current password does not match", app.NoColor))
					return errReported
				}
				return reportLookupError(cmd, app, model, hash, err)
			}

			ui.WriteSuccess(out, fmt.Sprintf("%s %s: password updated", model, hash), app.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Only check the current password")

	return cmd
}
