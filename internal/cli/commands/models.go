package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models [model]",
		Short: "List the declared models or describe one of them",
		Long: `List every model declared in the models file with its collection and
field count. With a model key, print the fields of that model in
validation order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if len(args) == 1 {
				return describeModel(cmd, app, args[0])
			}
			return listModels(cmd, app)
		},
	}
}

func listModels(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	keys := app.Registry.List()
	if len(keys) == 0 {
		fmt.Fprint(out, ui.Info("No models declared in "+app.Config.ModelsFile, app.NoColor))
		return nil
	}

	table := ui.NewTable(out, []string{"model", "name", "collection", "fields"}, app.NoColor)
	for _, key := range keys {
		meta, err := app.Cache.Meta(cmd.Context(), key)
		if err != nil {
			return err
		}
		table.AddRow(key, meta.ModelName, meta.CollectionName, strconv.Itoa(len(meta.FieldNames)))
	}
	table.Render()
	return nil
}

func describeModel(cmd *cobra.Command, app *App, key string) error {
	mc, err := app.Cache.GetOrInit(cmd.Context(), key)
	if err != nil {
		return reportModelError(cmd, app, key, err)
	}

	out := cmd.OutOrStdout()
	ui.Header(out, fmt.Sprintf("%s (%s)", mc.Meta.ModelName, mc.Meta.CollectionName), app.NoColor)

	table := ui.NewTable(out, []string{"field", "widget", "value type", "group", "flags"}, app.NoColor)
	for _, w := range mc.Widgets.ByGroup() {
		table.AddRow(w.Name, w.Type.String(), w.Type.ValueType(), strconv.Itoa(w.Group()), widgetFlags(w.Required, w.Unique, w.ReadOnly, w.Hidden, mc.Meta.IsIgnored(w.Name)))
	}
	table.Render()

	var ops []string
	if !mc.Meta.CanCreate {
		ops = append(ops, "create")
	}
	if !mc.Meta.CanUpdate {
		ops = append(ops, "update")
	}
	if !mc.Meta.CanDelete {
		ops = append(ops, "delete")
	}
	for _, op := range ops {
		fmt.Fprint(out, ui.Warning(fmt.Sprintf("%s is disabled for %s", op, key), app.NoColor))
	}
	return nil
}

func widgetFlags(required, unique, readOnly, hidden, ignored bool) string {
	flags := ""
	add := func(on bool, name string) {
		if !on {
			return
		}
		if flags != "" {
			flags += ","
		}
		flags += name
	}
	add(required, "required")
	add(unique, "unique")
	add(readOnly, "readonly")
	add(hidden, "hidden")
	add(ignored, "ignored")
	return flags
}
