package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldErrors holds the messages recorded on one field
type FieldErrors struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// ValidationErrors lists the failed fields of one model in declaration order
type ValidationErrors struct {
	Model  string
	Fields []FieldErrors
}

// NewValidationErrors creates an empty error list for a model
func NewValidationErrors(model string) *ValidationErrors {
	return &ValidationErrors{Model: model}
}

// Add appends a message to a field; a field seen for the first time goes last
func (ve *ValidationErrors) Add(field, message string) {
	for i := range ve.Fields {
		if ve.Fields[i].Field == field {
			ve.Fields[i].Messages = append(ve.Fields[i].Messages, message)
			return
		}
	}
	ve.Fields = append(ve.Fields, FieldErrors{Field: field, Messages: []string{message}})
}

// HasErrors returns true if any field failed
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Count returns the total number of messages across all fields
func (ve *ValidationErrors) Count() int {
	count := 0
	for _, f := range ve.Fields {
		count += len(f.Messages)
	}
	return count
}

// Map returns the messages keyed by field name
func (ve *ValidationErrors) Map() map[string][]string {
	out := make(map[string][]string, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = append([]string(nil), f.Messages...)
	}
	return out
}

// Lines renders one "field: msg; msg" line per failed field
func (ve *ValidationErrors) Lines() []string {
	lines := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Field, strings.Join(f.Messages, "; ")))
	}
	return lines
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	prefix := "validation failed"
	if ve.Model != "" {
		prefix = ve.Model + ": " + prefix
	}

	lines := ve.Lines()
	switch len(lines) {
	case 0:
		return prefix
	case 1:
		return fmt.Sprintf("%s: %s", prefix, lines[0])
	default:
		return fmt.Sprintf("%s:\n  - %s", prefix, strings.Join(lines, "\n  - "))
	}
}

// MarshalJSON renders the list with a stable error code
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	fields := ve.Fields
	if fields == nil {
		fields = []FieldErrors{}
	}
	return json.Marshal(struct {
		Error  string        `json:"error"`
		Model  string        `json:"model"`
		Fields []FieldErrors `json:"fields"`
	}{
		Error:  "validation_failed",
		Model:  ve.Model,
		Fields: fields,
	})
}
