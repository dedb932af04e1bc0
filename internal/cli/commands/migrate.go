package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/migrate"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring stored collections in step with the model declarations",
		Long: `Compare the recorded state of every model with its current declaration,
rewrite stored documents for added, changed and removed fields, and
record the new state. Dynamic select fields get their option document.

Use --dry-run to print the planned changes without touching the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			out := cmd.OutOrStdout()
			if dryRun {
				changes, err := app.Migrator.Plan(cmd.Context())
				if err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), ui.MigrationError(err.Error(), "No changes were planned.", app.NoColor))
					return errReported
				}
				printChanges(out, changes, app.NoColor)
				return nil
			}

			report, err := app.Migrator.Run(cmd.Context())
			if err != nil {
				app.Logger.Error("migration failed", zap.Error(err))
				fmt.Fprint(cmd.ErrOrStderr(), ui.MigrationError(err.Error(), "Models migrated before the failure keep their new state.", app.NoColor))
				return errReported
			}

			printChanges(out, report.Changes(), app.NoColor)
			for _, m := range report.Models {
				if m.Rewritten > 0 {
					fmt.Fprintf(out, "  %s: %d documents rewritten\n", m.Model, m.Rewritten)
				}
			}
			for _, key := range report.Dropped {
				fmt.Fprint(out, ui.Warning(fmt.Sprintf("state of %s removed; its documents were left in place", key), app.NoColor))
			}
			ui.WriteSuccess(out, fmt.Sprintf("Migration %s applied", report.Name), app.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show planned changes without applying them")

	return cmd
}

func printChanges(w io.Writer, changes []migrate.SchemaChange, noColor bool) {
	if len(changes) == 0 {
		fmt.Fprint(w, ui.Info("Schema is up to date", noColor))
		return
	}

	lossColor := color.New(color.FgYellow)
	if noColor {
		lossColor.DisableColor()
	}

	fmt.Fprintf(w, "%d changes:\n", len(changes))
	for _, change := range changes {
		if change.DataLoss {
			lossColor.Fprintf(w, "  ! %s (data loss)\n", change)
			continue
		}
		fmt.Fprintf(w, "  + %s\n", change)
	}
}
