package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

func newOptionsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Manage the options of dynamic select fields",
	}

	cmd.AddCommand(newOptionsListCommand(opts))
	cmd.AddCommand(newOptionsSetCommand(opts))

	return cmd
}

func newOptionsListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <model> <field>",
		Short: "Print the options of a dynamic select field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			meta, tag, err := dynamicField(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}

			options, err := app.Enricher.Options(cmd.Context(), meta.CollectionName, args[1], tag.Scalar)
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(), []string{"value", "label"}, app.NoColor)
			for _, opt := range options {
				table.AddRow(ui.FormatValue(opt.Value), opt.Label)
			}
			table.Render()
			return nil
		},
	}
}

func newOptionsSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model> <field> [value=label...]",
		Short: "Replace the options of a dynamic select field",
		Long: `Replace the option list of a dynamic select field. Each option is given
as value=label; a bare value is its own label. With no options the list
is cleared.`,
		Example: `  docmodel options set events_event category 1=Conference 2=Meetup`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			model, field := args[0], args[1]
			meta, tag, err := dynamicField(cmd, app, model, field)
			if err != nil {
				return err
			}

			options, err := parseOptionArgs(tag.Scalar, args[2:])
			if err != nil {
				return err
			}

			if err := app.Enricher.SetOptions(cmd.Context(), meta.CollectionName, field, tag.Scalar, options); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.StoreError(err.Error(), app.NoColor))
				return errReported
			}

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s.%s: %d options stored", model, field, len(options)), app.NoColor)
			return nil
		},
	}
}

// dynamicField resolves a field and requires it to be a dynamic select
func dynamicField(cmd *cobra.Command, app *App, model, field string) (*schema.Meta, schema.TypeTag, error) {
	meta, err := app.Cache.Meta(cmd.Context(), model)
	if err != nil {
		return nil, schema.TypeTag{}, reportModelError(cmd, app, model, err)
	}

	tag, ok := meta.FieldTypes[field]
	if !ok {
		fmt.Fprint(cmd.ErrOrStderr(), ui.FieldNotFoundError(model, field, meta.FieldNames, app.NoColor))
		return nil, schema.TypeTag{}, errReported
	}
	if !tag.Dynamic {
		return nil, schema.TypeTag{}, fmt.Errorf("%s.%s is %s, not a dynamic select", model, field, tag)
	}
	return meta, tag, nil
}

// parseOptionArgs converts value=label arguments into options of the field scalar
func parseOptionArgs(scalar schema.Scalar, args []string) ([]schema.Option, error) {
	single := schema.TypeTag{Kind: schema.KindSelect, Scalar: scalar}

	options := make([]schema.Option, 0, len(args))
	for _, arg := range args {
		raw, label, found := strings.Cut(arg, "=")
		if !found {
			label = raw
		}
		value, err := schema.Coerce(single, raw)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", arg, err)
		}
		if value == nil {
			return nil, fmt.Errorf("option %q: empty value", arg)
		}
		options = append(options, schema.Option{Value: value, Label: label})
	}
	return options, nil
}
