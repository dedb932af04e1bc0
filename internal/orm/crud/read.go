package crud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// FindOne loads the first matching document into the widget map of its model
func (o *Operations) FindOne(ctx context.Context, model string, filter store.Filter) (*OutputData, error) {
	mc, err := o.cache.GetOrInit(ctx, model)
	if err != nil {
		return nil, err
	}

	if o.enricher != nil {
		if err := o.enricher.Enrich(ctx, mc.Widgets, mc.Meta.CollectionName); err != nil {
			return nil, err
		}
	}

	raw, err := mc.Collection.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}

	widgets, err := convert.ToWidgets(mc.Meta, mc.Widgets, raw)
	if err != nil {
		return nil, err
	}
	for _, w := range widgets {
		if w.Type.Kind == schema.KindPassword {
			w.Value = ""
		}
	}

	prepared, err := convert.ToPreparedDoc(raw, mc.Meta.IgnoreFields, mc.Meta.FieldTypes)
	if err != nil {
		return nil, err
	}

	out := newOutput(mc.Meta, widgets, prepared)
	out.createdAt, _ = raw[schema.FieldCreatedAt].(time.Time)
	out.updatedAt, _ = raw[schema.FieldUpdatedAt].(time.Time)
	return out, nil
}

// FindOneInstance loads the first matching document as an instance ready to re-save
func (o *Operations) FindOneInstance(ctx context.Context, model string, filter store.Filter) (*Instance, error) {
	mc, err := o.cache.GetOrInit(ctx, model)
	if err != nil {
		return nil, err
	}

	raw, err := mc.Collection.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}

	values, err := convert.ToValues(mc.Meta, raw)
	if err != nil {
		return nil, err
	}

	inst := &Instance{Model: model, Values: values}
	inst.Hash, _ = values[schema.FieldHash].(string)
	inst.CreatedAt, _ = raw[schema.FieldCreatedAt].(time.Time)
	inst.UpdatedAt, _ = raw[schema.FieldUpdatedAt].(time.Time)
	delete(values, schema.FieldHash)
	delete(values, schema.FieldCreatedAt)
	delete(values, schema.FieldUpdatedAt)

	return inst, nil
}

// FindMany returns the display documents matching filter
func (o *Operations) FindMany(ctx context.Context, model string, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	mc, err := o.cache.GetOrInit(ctx, model)
	if err != nil {
		return nil, err
	}

	raws, err := mc.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := convert.ToPreparedDoc(raw, mc.Meta.IgnoreFields, mc.Meta.FieldTypes)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindManyJSON renders FindMany as a JSON array
func (o *Operations) FindManyJSON(ctx context.Context, model string, filter store.Filter, opts *store.FindOptions) (string, error) {
	docs, err := o.FindMany(ctx, model, filter, opts)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("failed to encode documents: %w", err)
	}
	return string(data), nil
}

// Count returns the number of documents matching filter
func (o *Operations) Count(ctx context.Context, model string, filter store.Filter) (int64, error) {
	mc, err := o.cache.GetOrInit(ctx, model)
	if err != nil {
		return 0, err
	}
	return mc.Collection.Count(ctx, filter)
}
