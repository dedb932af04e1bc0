package migrate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

// ChangeType represents the type of schema change
type ChangeType int

const (
	ChangeAddModel ChangeType = iota
	ChangeDropModel
	ChangeAddField
	ChangeDropField
	ChangeModifyField
)

// String returns the string representation of the change type
func (c ChangeType) String() string {
	switch c {
	case ChangeAddModel:
		return "add_model"
	case ChangeDropModel:
		return "drop_model"
	case ChangeAddField:
		return "add_field"
	case ChangeDropField:
		return "drop_field"
	case ChangeModifyField:
		return "modify_field"
	default:
		return "unknown"
	}
}

// ModelState is the persisted field layout of one model: stored field name to widget type tag
type ModelState struct {
	Key        string
	Collection string
	Fields     map[string]string
}

// StateOf captures the persisted layout of a model. The hash and ignored fields are not stored.
func StateOf(meta *schema.Meta) *ModelState {
	fields := make(map[string]string)
	for name, tag := range meta.PersistedTypes() {
		fields[name] = tag.String()
	}
	return &ModelState{
		Key:        meta.Key,
		Collection: meta.CollectionName,
		Fields:     fields,
	}
}

// SchemaChange represents a detected change between two model states
type SchemaChange struct {
	Type     ChangeType
	Model    string
	Field    string
	OldValue string
	NewValue string
	DataLoss bool
}

// String renders the change for reports, e.g. "add_field accounts_user.email"
func (c SchemaChange) String() string {
	if c.Field == "" {
		return fmt.Sprintf("%s %s", c.Type, c.Model)
	}
	if c.Type == ChangeModifyField {
		return fmt.Sprintf("%s %s.%s (%s -> %s)", c.Type, c.Model, c.Field, c.OldValue, c.NewValue)
	}
	return fmt.Sprintf("%s %s.%s", c.Type, c.Model, c.Field)
}

// Differ compares old and new model states to detect changes
type Differ struct {
	oldStates map[string]*ModelState
	newStates map[string]*ModelState
}

// NewDiffer creates a new state differ
func NewDiffer(oldStates, newStates map[string]*ModelState) *Differ {
	return &Differ{
		oldStates: oldStates,
		newStates: newStates,
	}
}

// ComputeDiff computes all changes between old and new states
func (d *Differ) ComputeDiff() []SchemaChange {
	var changes []SchemaChange

	oldKeys := sortedKeys(d.oldStates)
	newKeys := sortedKeys(d.newStates)

	for _, key := range setDifference(newKeys, oldKeys) {
		changes = append(changes, SchemaChange{Type: ChangeAddModel, Model: key})
	}

	for _, key := range setDifference(oldKeys, newKeys) {
		changes = append(changes, SchemaChange{Type: ChangeDropModel, Model: key, DataLoss: true})
	}

	for _, key := range setIntersection(oldKeys, newKeys) {
		changes = append(changes, DiffFields(d.oldStates[key], d.newStates[key])...)
	}

	return changes
}

// DiffFields compares the fields of two states of the same model.
// A type change resets stored values, so it counts as data loss.
func DiffFields(oldState, newState *ModelState) []SchemaChange {
	var changes []SchemaChange
	key := newState.Key

	oldFields := sortedKeys(oldState.Fields)
	newFields := sortedKeys(newState.Fields)

	for _, name := range setDifference(newFields, oldFields) {
		changes = append(changes, SchemaChange{
			Type:     ChangeAddField,
			Model:    key,
			Field:    name,
			NewValue: newState.Fields[name],
		})
	}

	for _, name := range setDifference(oldFields, newFields) {
		changes = append(changes, SchemaChange{
			Type:     ChangeDropField,
			Model:    key,
			Field:    name,
			OldValue: oldState.Fields[name],
			DataLoss: true,
		})
	}

	for _, name := range setIntersection(oldFields, newFields) {
		oldType, newType := oldState.Fields[name], newState.Fields[name]
		if oldType == newType {
			continue
		}
		changes = append(changes, SchemaChange{
			Type:     ChangeModifyField,
			Model:    key,
			Field:    name,
			OldValue: oldType,
			NewValue: newType,
			DataLoss: true,
		})
	}

	return changes
}

// Set operations
func setDifference(a, b []string) []string {
	mb := make(map[string]bool)
	for _, x := range b {
		mb[x] = true
	}

	var diff []string
	for _, x := range a {
		if !mb[x] {
			diff = append(diff, x)
		}
	}
	return diff
}

func setIntersection(a, b []string) []string {
	mb := make(map[string]bool)
	for _, x := range b {
		mb[x] = true
	}

	var inter []string
	for _, x := range a {
		if mb[x] {
			inter = append(inter, x)
		}
	}
	return inter
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GenerateMigrationName creates a descriptive name for a set of changes
func GenerateMigrationName(changes []SchemaChange) string {
	if len(changes) == 0 {
		return "no_changes"
	}

	var added, dropped, modified []string
	var models, fields int

	for _, change := range changes {
		switch change.Type {
		case ChangeAddModel:
			added = append(added, fmt.Sprintf("model_%s", change.Model))
			models++
		case ChangeDropModel:
			dropped = append(dropped, fmt.Sprintf("model_%s", change.Model))
			models++
		case ChangeAddField:
			added = append(added, fmt.Sprintf("%s.%s", change.Model, change.Field))
			fields++
		case ChangeDropField:
			dropped = append(dropped, fmt.Sprintf("%s.%s", change.Model, change.Field))
			fields++
		case ChangeModifyField:
			modified = append(modified, fmt.Sprintf("%s.%s", change.Model, change.Field))
			fields++
		}
	}

	var parts []string

	if len(added) > 0 {
		if len(added) <= 3 {
			parts = append(parts, "add_"+strings.Join(added, "_"))
		} else {
			parts = append(parts, fmt.Sprintf("add_%d_items", len(added)))
		}
	}

	if len(dropped) > 0 {
		if len(dropped) <= 3 {
			parts = append(parts, "drop_"+strings.Join(dropped, "_"))
		} else {
			parts = append(parts, fmt.Sprintf("drop_%d_items", len(dropped)))
		}
	}

	if len(modified) > 0 {
		if len(modified) <= 3 {
			parts = append(parts, "modify_"+strings.Join(modified, "_"))
		} else {
			parts = append(parts, fmt.Sprintf("modify_%d_fields", len(modified)))
		}
	}

	name := strings.Join(parts, "_and_")

	// Limit name length
	if len(name) > 200 {
		return fmt.Sprintf("schema_changes_%d_models_%d_fields", models, fields)
	}

	return name
}
