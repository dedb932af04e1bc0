package commands

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/conduit-lang/docmodel/internal/cli/ui"
	"github.com/conduit-lang/docmodel/internal/orm/crud"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

// prompter asks for field values on the terminal
type prompter interface {
	Input(message, help, def string) (string, error)
	Password(message, help string) (string, error)
	Confirm(message string, def bool) (bool, error)
	Select(message string, options []string, def string) (string, error)
	MultiSelect(message string, options []string, defaults []string) ([]string, error)
}

// surveyPrompter implements prompter on an interactive terminal
type surveyPrompter struct{}

func (surveyPrompter) Input(message, help, def string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message, Help: help, Default: def}, &answer)
	return answer, err
}

func (surveyPrompter) Password(message, help string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Password{Message: message, Help: help}, &answer)
	return answer, err
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var answer bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &answer)
	return answer, err
}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var answer string
	q := &survey.Select{Message: message, Options: options}
	if def != "" {
		q.Default = def
	}
	err := survey.AskOne(q, &answer)
	return answer, err
}

func (surveyPrompter) MultiSelect(message string, options []string, defaults []string) ([]string, error) {
	var answer []string
	q := &survey.MultiSelect{Message: message, Options: options}
	if len(defaults) > 0 {
		q.Default = defaults
	}
	err := survey.AskOne(q, &answer)
	return answer, err
}

// promptValues walks the editable widgets of a model in validation order and
// asks for each value. current holds the values of a stored document, if any.
func promptValues(ctx context.Context, app *App, model string, current map[string]interface{}) (map[string]interface{}, error) {
	form, err := app.Ops.Check(ctx, crud.NewInstance(model, nil))
	if err != nil {
		return nil, err
	}

	updating := current != nil
	values := make(map[string]interface{})

	for _, w := range form.Widgets().ByGroup() {
		if !editable(w) {
			continue
		}

		def := w.Value
		if v, ok := current[w.Name]; ok {
			def = v
		}

		message := w.Label
		if message == "" {
			message = w.Name
		}
		if w.Required {
			message += " *"
		}

		switch {
		case w.Type.Kind == schema.KindPassword:
			if updating {
				continue
			}
			answer, err := app.prompter.Password(message, w.Hint)
			if err != nil {
				return nil, err
			}
			values[w.Name] = answer

		case w.Type.Kind == schema.KindBool:
			on, _ := def.(bool)
			answer, err := app.prompter.Confirm(message, on)
			if err != nil {
				return nil, err
			}
			values[w.Name] = answer

		case w.Type.Kind == schema.KindSelect && w.Type.Multiple:
			labels, byLabel := optionLabels(w.Options)
			answer, err := app.prompter.MultiSelect(message, labels, selectedLabels(w.Options, def))
			if err != nil {
				return nil, err
			}
			picked := make([]interface{}, 0, len(answer))
			for _, label := range answer {
				picked = append(picked, byLabel[label])
			}
			values[w.Name] = picked

		case w.Type.Kind == schema.KindSelect:
			if len(w.Options) == 0 {
				continue
			}
			labels, byLabel := optionLabels(w.Options)
			selected := selectedLabels(w.Options, def)
			first := ""
			if len(selected) > 0 {
				first = selected[0]
			}
			answer, err := app.prompter.Select(message, labels, first)
			if err != nil {
				return nil, err
			}
			values[w.Name] = byLabel[answer]

		default:
			answer, err := app.prompter.Input(message, w.Hint, defaultText(def))
			if err != nil {
				return nil, err
			}
			if w.Type.Kind.IsAsset() && (answer == "" || (updating && answer == defaultText(def))) {
				continue
			}
			values[w.Name] = answer
		}
	}

	return values, nil
}

func editable(w *schema.Widget) bool {
	if w.Hidden || w.ReadOnly || w.Disabled {
		return false
	}
	switch w.Type.Kind {
	case schema.KindHash, schema.KindHiddenDateTime, schema.KindSlug:
		return false
	}
	return true
}

func optionLabels(options []schema.Option) ([]string, map[string]interface{}) {
	labels := make([]string, 0, len(options))
	byLabel := make(map[string]interface{}, len(options))
	for _, opt := range options {
		label := opt.Label
		if _, dup := byLabel[label]; dup || label == "" {
			label = fmt.Sprintf("%s (%v)", opt.Label, opt.Value)
		}
		labels = append(labels, label)
		byLabel[label] = opt.Value
	}
	return labels, byLabel
}

// selectedLabels maps the current value of a select widget back to its labels
func selectedLabels(options []schema.Option, value interface{}) []string {
	wanted := make(map[string]bool)
	switch v := value.(type) {
	case nil:
	case []string, []int32, []uint32, []int64, []float64, []interface{}:
		for _, item := range toInterfaces(v) {
			wanted[fmt.Sprint(item)] = true
		}
	default:
		wanted[fmt.Sprint(v)] = true
	}

	labels, _ := optionLabels(options)
	var out []string
	for i, opt := range options {
		if wanted[fmt.Sprint(opt.Value)] {
			out = append(out, labels[i])
		}
	}
	return out
}

func toInterfaces(v interface{}) []interface{} {
	var out []interface{}
	switch s := v.(type) {
	case []string:
		for _, x := range s {
			out = append(out, x)
		}
	case []int32:
		for _, x := range s {
			out = append(out, x)
		}
	case []uint32:
		for _, x := range s {
			out = append(out, x)
		}
	case []int64:
		for _, x := range s {
			out = append(out, x)
		}
	case []float64:
		for _, x := range s {
			out = append(out, x)
		}
	case []interface{}:
		out = s
	}
	return out
}

func defaultText(v interface{}) string {
	switch val := v.(type) {
	case *schema.FileData:
		if val == nil {
			return ""
		}
		return val.Path
	case *schema.ImageData:
		if val == nil {
			return ""
		}
		return val.Path
	default:
		return ui.FormatValue(v)
	}
}
