package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/crud"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var (
		data   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check <model>",
		Short: "Validate field values without saving them",
		Long: `Run the full validation pipeline of a model over the given values,
including uniqueness against the stored collection, and report every
field error. Nothing is written.`,
		Example: `  docmodel check accounts_user --data '{"username": "jdoe", "email": "jdoe@example.com"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			values, err := decodeValues(data)
			if err != nil {
				return err
			}
			if err := checkFields(cmd, app, args[0], values); err != nil {
				return err
			}

			result, err := app.Ops.Check(cmd.Context(), crud.NewInstance(args[0], values))
			if err != nil {
				return reportModelError(cmd, app, args[0], err)
			}
			if !result.IsValid() {
				if asJSON {
					report, err := json.Marshal(result.Err())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(report))
					return errReported
				}
				result.PrintErr(cmd.ErrOrStderr())
				return errReported
			}

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s: all fields are valid", args[0]), app.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Field values as a JSON object")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print field errors as a JSON report")

	return cmd
}

func newSaveCommand(opts *rootOptions) *cobra.Command {
	var (
		data        string
		hash        string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "save <model>",
		Short: "Create a document, or update one with --hash",
		Long: `Validate and store a document. Without --hash a new document is created;
with --hash the stored document is loaded, the given values are applied
over it and the result is saved. Use --interactive to be prompted for
every editable field.`,
		Example: `  docmodel save accounts_user --data '{"username": "jdoe", "password": "s3cret!"}'
  docmodel save accounts_user --hash 0190e4c1a3b27c3d8e4f5a6b7c8d9e0f --data '{"email": "new@example.com"}'
  docmodel save events_event --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			model := args[0]

			inst := crud.NewInstance(model, nil)
			if hash != "" {
				if inst, err = loadInstance(ctx, app, model, hash); err != nil {
					return reportLookupError(cmd, app, model, hash, err)
				}
			}

			var values map[string]interface{}
			if interactive {
				var current map[string]interface{}
				if hash != "" {
					current = inst.Values
				}
				if values, err = promptValues(ctx, app, model, current); err != nil {
					return reportModelError(cmd, app, model, err)
				}
			} else if values, err = decodeValues(data); err != nil {
				return err
			}
			if err := checkFields(cmd, app, model, values); err != nil {
				return err
			}
			for name, v := range values {
				inst.Set(name, v)
			}

			result, err := app.Ops.Save(ctx, inst)
			if err != nil {
				if crud.IsOperationNotAllowed(err) {
					fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(err.Error(), app.NoColor))
					return errReported
				}
				return reportModelError(cmd, app, model, err)
			}
			if !result.IsValid() {
				result.PrintErr(cmd.ErrOrStderr())
				return errReported
			}

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s saved: %s", model, result.Hash()), app.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Field values as a JSON object")
	cmd.Flags().StringVar(&hash, "hash", "", "Hash of the document to update")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for every editable field")

	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	var (
		admin  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show <model> <hash>",
		Short: "Show one stored document",
		Long: `Print a stored document. --json prints the widget map keyed by field;
--admin prints the widgets in declaration order as an admin form would
consume them. Password values are never printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			model, hash := args[0], args[1]
			id, err := store.ObjectIDFromHex(hash)
			if err != nil {
				return err
			}

			result, err := app.Ops.FindOne(cmd.Context(), model, store.ByID(id))
			if err != nil {
				return reportLookupError(cmd, app, model, hash, err)
			}

			out := cmd.OutOrStdout()
			switch {
			case admin:
				text, err := result.ToJSONForAdmin()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
			case asJSON:
				text, err := result.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
			default:
				meta, err := app.Cache.Meta(cmd.Context(), model)
				if err != nil {
					return err
				}
				ui.Header(out, fmt.Sprintf("%s %s", meta.ModelName, hash), app.NoColor)
				ui.RenderDocument(out, result.Document(), meta.FieldNames, app.NoColor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Print widgets in declaration order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the widget map as JSON")

	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		limit  int64
		skip   int64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list <model>",
		Short: "List stored documents, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			model := args[0]
			findOpts := &store.FindOptions{
				Sort:  []store.SortField{{Field: schema.FieldCreatedAt, Descending: true}},
				Skip:  skip,
				Limit: limit,
			}

			out := cmd.OutOrStdout()
			if asJSON {
				text, err := app.Ops.FindManyJSON(ctx, model, store.Filter{}, findOpts)
				if err != nil {
					return reportModelError(cmd, app, model, err)
				}
				fmt.Fprintln(out, text)
				return nil
			}

			docs, err := app.Ops.FindMany(ctx, model, store.Filter{}, findOpts)
			if err != nil {
				return reportModelError(cmd, app, model, err)
			}
			total, err := app.Ops.Count(ctx, model, store.Filter{})
			if err != nil {
				return err
			}
			meta, err := app.Cache.Meta(ctx, model)
			if err != nil {
				return err
			}

			rows := make([]map[string]interface{}, 0, len(docs))
			for _, doc := range docs {
				rows = append(rows, doc)
			}
			ui.RenderDocuments(out, listColumns(meta), rows, app.NoColor)
			fmt.Fprintf(out, "%d of %d documents\n", len(docs), total)
			return nil
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 20, "Maximum number of documents (0 for all)")
	cmd.Flags().Int64Var(&skip, "skip", 0, "Number of documents to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print documents as a JSON array")

	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <hash>",
		Short: "Delete a stored document and release its files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			model, hash := args[0], args[1]
			inst := crud.NewInstance(model, nil)
			inst.Hash = hash

			result, err := app.Ops.Delete(cmd.Context(), inst)
			if err != nil {
				if crud.IsOperationNotAllowed(err) {
					fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(result.Message, app.NoColor))
					return errReported
				}
				if !result.OK {
					return reportModelError(cmd, app, model, err)
				}
				// the document is gone; only a post-delete hook failed
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(err.Error(), app.NoColor))
			}
			if !result.OK {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("%s %s: %s", model, hash, result.Message), app.NoColor))
				return errReported
			}

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s %s: %s", model, hash, result.Message), app.NoColor)
			return nil
		},
	}
}

// decodeValues parses a JSON object of field values; numbers stay json.Number
// so integer fields never pass through float64
func decodeValues(data string) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	if strings.TrimSpace(data) == "" {
		return values, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	return values, nil
}

// checkFields reports the first value naming a field the model does not declare
func checkFields(cmd *cobra.Command, app *App, model string, values map[string]interface{}) error {
	meta, err := app.Cache.Meta(cmd.Context(), model)
	if err != nil {
		return reportModelError(cmd, app, model, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !meta.HasField(name) {
			fmt.Fprint(cmd.ErrOrStderr(), ui.FieldNotFoundError(model, name, meta.FieldNames, app.NoColor))
			return errReported
		}
	}
	return nil
}

func loadInstance(ctx context.Context, app *App, model, hash string) (*crud.Instance, error) {
	id, err := store.ObjectIDFromHex(hash)
	if err != nil {
		return nil, err
	}
	return app.Ops.FindOneInstance(ctx, model, store.ByID(id))
}

// reportLookupError turns a missing document into a warning
func reportLookupError(cmd *cobra.Command, app *App, model, hash string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("%s %s: document not found", model, hash), app.NoColor))
		return errReported
	}
	return reportModelError(cmd, app, model, err)
}

// listColumns returns the persisted, non-password fields of a model in declaration order
func listColumns(meta *schema.Meta) []string {
	var cols []string
	for _, name := range meta.FieldNames {
		tag := meta.FieldTypes[name]
		if name == schema.FieldHash || meta.IsIgnored(name) || tag.Kind == schema.KindPassword {
			continue
		}
		cols = append(cols, name)
	}
	return cols
}
