package crud

import (
	"context"
	"fmt"
	"time"

	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
	"github.com/conduit-lang/docmodel/internal/store"
)

// Check validates an instance without writing. Slugs are computed but not stored.
func (o *Operations) Check(ctx context.Context, inst *Instance) (*OutputData, error) {
	mc, err := o.cache.GetOrInit(ctx, inst.Model)
	if err != nil {
		return nil, err
	}

	ownID, err := instanceID(inst)
	if err != nil {
		return nil, err
	}

	widgets, err := o.check(ctx, inst, mc, ownID, ownID)
	if err != nil {
		return nil, err
	}
	return newOutput(mc.Meta, widgets, nil), nil
}

// check runs enrichment, value application, slug computation and validation.
// hashID is shown in the hash widget; ownID is excluded from uniqueness checks.
func (o *Operations) check(ctx context.Context, inst *Instance, mc *cache.ModelCache, hashID, ownID store.ObjectID) (schema.WidgetMap, error) {
	widgets := mc.Widgets

	if o.enricher != nil {
		if err := o.enricher.Enrich(ctx, widgets, mc.Meta.CollectionName); err != nil {
			return nil, err
		}
	}

	updating := inst.Hash != ""
	skip := make(map[string]bool)
	coercionErrors := make(map[string]string)

	for name, raw := range inst.Values {
		w, ok := widgets[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, inst.Model, name)
		}
		switch name {
		case schema.FieldHash, schema.FieldCreatedAt, schema.FieldUpdatedAt:
			continue
		}
		v, err := schema.Coerce(w.Type, raw)
		if err != nil {
			coercionErrors[name] = err.Error()
			skip[name] = true
			continue
		}
		w.Value = v
	}

	// stored passwords change through UpdatePassword only
	if updating {
		for name, w := range widgets {
			if w.Type.Kind == schema.KindPassword {
				skip[name] = true
			}
		}
	}

	if !hashID.IsZero() {
		widgets[schema.FieldHash].Value = hashID.Hex()
	}
	setTimestamp(widgets, schema.FieldCreatedAt, inst.CreatedAt)
	setTimestamp(widgets, schema.FieldUpdatedAt, inst.UpdatedAt)

	computeSlugs(widgets)

	validated, err := o.engine.Validate(ctx, validation.Request{
		Meta:       mc.Meta,
		Widgets:    widgets,
		Collection: mc.Collection,
		OwnID:      ownID,
		Skip:       skip,
		Additional: o.additional[inst.Model],
	})
	if err != nil {
		return nil, err
	}

	for name, msg := range coercionErrors {
		validated[name].AddError(msg)
	}

	o.scope.Counter("check").Inc(1)
	if validated.HasErrors() {
		o.scope.Counter("check.invalid").Inc(1)
	}

	return validated, nil
}

func setTimestamp(widgets schema.WidgetMap, field string, t time.Time) {
	w, ok := widgets[field]
	if !ok {
		return
	}
	if t.IsZero() {
		w.Value = ""
		return
	}
	w.Value = convert.FormatDateTime(t)
}

func instanceID(inst *Instance) (store.ObjectID, error) {
	if inst.Hash == "" {
		return store.NilObjectID, nil
	}
	return store.ObjectIDFromHex(inst.Hash)
}
