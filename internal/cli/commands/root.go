package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmodel/internal/cli/config"
	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported marks a failure whose diagnostic was already written
var errReported = errors.New("error reported")

// rootOptions carries the persistent flags and, in tests, a prebuilt App
type rootOptions struct {
	configPath string
	noColor    bool
	app        *App
}

// open returns the App for one command run and a function releasing it
func (o *rootOptions) open(cmd *cobra.Command) (*App, func(), error) {
	if o.app != nil {
		o.app.NoColor = o.app.NoColor || o.noColor
		return o.app, func() {}, nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), o.noColor))
		return nil, nil, errReported
	}

	app, err := NewApp(cmd.Context(), cfg)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), o.noColor))
		return nil, nil, errReported
	}
	app.NoColor = o.noColor

	return app, func() { _ = app.Close() }, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docmodel",
		Short: "Validate, store and inspect documents of declared models",
		Long: color.CyanString(`docmodel - widget-driven document models

docmodel checks and saves documents against model declarations,
keeps collections in step with the declarations, and manages the
options of dynamic select fields.

Stores:
  • memory (default)
  • redis
  • sqlite3, pgx and postgres`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the configuration file (default ./docmodel.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newModelsCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newSaveCommand(opts))
	rootCmd.AddCommand(newShowCommand(opts))
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newDeleteCommand(opts))
	rootCmd.AddCommand(newPasswordCommand(opts))
	rootCmd.AddCommand(newOptionsCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the docmodel version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "docmodel version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// reportModelError writes a diagnostic for a model lookup failure and
// returns errReported, or returns err unchanged for other failures
func reportModelError(cmd *cobra.Command, app *App, key string, err error) error {
	if errors.Is(err, schema.ErrModelNotRegistered) {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ModelNotFoundError(key, app.Registry.List(), app.NoColor))
		return errReported
	}
	return err
}
