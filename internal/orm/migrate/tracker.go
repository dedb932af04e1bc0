// Package migrate reconciles stored documents with the current model declarations
package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/conduit-lang/docmodel/internal/store"
)

// Keys of a model state document in the technical collection
const (
	keyModelState     = "model_state"
	keyStateTarget    = "target_collection"
	keyStateFields    = "fields"
	keyStateAppliedAt = "applied_at"
)

// Tracker persists model states in the technical collection
type Tracker struct {
	coll  store.Collection
	clock func() time.Time
}

// NewTracker creates a new state tracker
func NewTracker(coll store.Collection) *Tracker {
	return &Tracker{coll: coll, clock: time.Now}
}

// Load returns the recorded state of a model, or nil if none was recorded
func (t *Tracker) Load(ctx context.Context, key string) (*ModelState, error) {
	doc, err := t.coll.FindOne(ctx, store.Filter{keyModelState: key})
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load state of %s: %w", key, err)
	}
	return decodeState(doc)
}

// LoadAll returns every recorded state keyed by model
func (t *Tracker) LoadAll(ctx context.Context) (map[string]*ModelState, error) {
	docs, err := t.coll.Find(ctx, store.Filter{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query model states: %w", err)
	}

	states := make(map[string]*ModelState)
	for _, doc := range docs {
		if _, ok := doc[keyModelState].(string); !ok {
			continue
		}
		state, err := decodeState(doc)
		if err != nil {
			return nil, err
		}
		states[state.Key] = state
	}
	return states, nil
}

// Record stores the state of a model, replacing any previous one
func (t *Tracker) Record(ctx context.Context, state *ModelState) error {
	fields := make(map[string]interface{}, len(state.Fields))
	for name, tag := range state.Fields {
		fields[name] = tag
	}
	doc := store.Document{
		keyModelState:     state.Key,
		keyStateTarget:    state.Collection,
		keyStateFields:    fields,
		keyStateAppliedAt: t.clock().UTC(),
	}

	n, err := t.coll.ReplaceOne(ctx, store.Filter{keyModelState: state.Key}, doc)
	if err != nil {
		return fmt.Errorf("failed to record state of %s: %w", state.Key, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := t.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record state of %s: %w", state.Key, err)
	}
	return nil
}

// Remove deletes the recorded state of a model
func (t *Tracker) Remove(ctx context.Context, key string) error {
	n, err := t.coll.DeleteOne(ctx, store.Filter{keyModelState: key})
	if err != nil {
		return fmt.Errorf("failed to remove state of %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("state of %s: %w", key, store.ErrNotFound)
	}
	return nil
}

func decodeState(doc store.Document) (*ModelState, error) {
	key, _ := doc[keyModelState].(string)
	state := &ModelState{
		Key:    key,
		Fields: make(map[string]string),
	}
	state.Collection, _ = doc[keyStateTarget].(string)

	raw, ok := doc[keyStateFields].(map[string]interface{})
	if !ok && doc[keyStateFields] != nil {
		return nil, fmt.Errorf("state of %s: fields must be a document, got %T", key, doc[keyStateFields])
	}
	for name, v := range raw {
		tag, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("state of %s: field %s has type %T", key, name, v)
		}
		state.Fields[name] = tag
	}
	return state, nil
}
