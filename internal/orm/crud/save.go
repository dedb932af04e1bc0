package crud

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/orm/assets"
	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/hooks"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// Save checks an instance and, when valid, creates or updates its document.
// An instance without a hash is created; one with a hash replaces the stored document.
// Invalid output is returned without error and without hooks or writes.
func (o *Operations) Save(ctx context.Context, inst *Instance) (*OutputData, error) {
	start := time.Now()

	mc, err := o.cache.GetOrInit(ctx, inst.Model)
	if err != nil {
		return nil, err
	}
	meta := mc.Meta

	creating := inst.Hash == ""
	op := OperationUpdate
	if creating {
		op = OperationCreate
	}
	if (creating && !meta.CanCreate) || (!creating && !meta.CanUpdate) {
		return nil, fmt.Errorf("%w: %s %s", ErrOperationNotAllowed, op, inst.Model)
	}

	var (
		id     store.ObjectID
		stored store.Document
	)
	if creating {
		id = store.NewObjectID()
	} else {
		if id, err = store.ObjectIDFromHex(inst.Hash); err != nil {
			return nil, err
		}
		if stored, err = mc.Collection.FindOne(ctx, store.ByID(id)); err != nil {
			return nil, fmt.Errorf("failed to load %s %s: %w", inst.Model, inst.Hash, err)
		}
	}

	ownID := id
	if creating {
		ownID = store.NilObjectID
	}
	widgets, err := o.check(ctx, inst, mc, id, ownID)
	if err != nil {
		return nil, err
	}
	if widgets.HasErrors() {
		if creating {
			// the generated id was never stored
			widgets[schema.FieldHash].Value = ""
			computeSlugs(widgets)
		}
		return newOutput(meta, widgets, nil), nil
	}

	now := o.now()
	createdAt := now
	if !creating {
		if t, ok := stored[schema.FieldCreatedAt].(time.Time); ok {
			createdAt = t.UTC()
		}
	}

	doc, err := convert.ToDocument(meta, widgets)
	if err != nil {
		return nil, err
	}
	doc[store.IDField] = id
	doc[schema.FieldCreatedAt] = createdAt
	doc[schema.FieldUpdatedAt] = now

	if err := o.applyPasswords(meta, widgets, doc, stored); err != nil {
		return nil, err
	}

	pending, err := o.stageAssets(meta, widgets, doc, stored)
	if err != nil {
		return nil, err
	}

	ev := &hooks.Event{
		Model:      inst.Model,
		Collection: meta.CollectionName,
		Hash:       id.Hex(),
		Document:   doc,
		Widgets:    widgets,
	}
	h := o.hooks.For(inst.Model)

	ev.Type = hooks.PreUpdate
	if creating {
		ev.Type = hooks.PreCreate
	}
	if err := h.Run(ctx, ev); err != nil {
		pending.rollback(o.logger)
		return nil, err
	}

	if err := o.write(ctx, mc, creating, id, doc); err != nil {
		pending.rollback(o.logger)
		return nil, err
	}

	inst.Hash = id.Hex()
	inst.CreatedAt = createdAt
	inst.UpdatedAt = now

	ev.Type = hooks.PostUpdate
	if creating {
		ev.Type = hooks.PostCreate
	}
	postErr := h.Run(ctx, ev)
	if postErr != nil {
		o.logger.Warn("post-save hook failed",
			zap.String("model", inst.Model),
			zap.String("hash", inst.Hash),
			zap.Error(postErr))
	}

	pending.commit(o.assets, o.logger)

	for _, w := range widgets {
		if w.Type.Kind == schema.KindPassword {
			w.Value = ""
		}
	}
	setTimestamp(widgets, schema.FieldCreatedAt, createdAt)
	setTimestamp(widgets, schema.FieldUpdatedAt, now)

	prepared, err := convert.ToPreparedDoc(doc, meta.IgnoreFields, meta.FieldTypes)
	if err != nil {
		return nil, err
	}

	out := newOutput(meta, widgets, prepared)
	out.createdAt = createdAt
	out.updatedAt = now

	if creating {
		o.scope.Counter("save.created").Inc(1)
	} else {
		o.scope.Counter("save.updated").Inc(1)
	}
	o.scope.Timer("save.latency").Record(time.Since(start))

	o.logger.Info("document saved",
		zap.String("model", inst.Model),
		zap.String("operation", op.String()),
		zap.String("hash", inst.Hash))

	return out, postErr
}

func (o *Operations) write(ctx context.Context, mc *cache.ModelCache, creating bool, id store.ObjectID, doc store.Document) error {
	if creating {
		if _, err := mc.Collection.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		return nil
	}

	n, err := mc.Collection.ReplaceOne(ctx, store.ByID(id), doc)
	if err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id.Hex())
	}
	return nil
}

// applyPasswords hashes new passwords on create and keeps stored hashes on update
func (o *Operations) applyPasswords(meta *schema.Meta, widgets schema.WidgetMap, doc, stored store.Document) error {
	for _, name := range meta.FieldNames {
		if meta.IsIgnored(name) || meta.FieldTypes[name].Kind != schema.KindPassword {
			continue
		}

		if stored != nil {
			doc[name] = stored[name]
			continue
		}

		plain, _ := widgets[name].Value.(string)
		if plain == "" {
			doc[name] = ""
			continue
		}
		hashed, err := o.hashPassword(plain)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", name, err)
		}
		doc[name] = hashed
	}
	return nil
}

// pendingAssets tracks staged uploads and the committed assets they replace
type pendingAssets struct {
	staged  []*assets.Staged
	release []string
}

func (p *pendingAssets) rollback(logger *zap.Logger) {
	for _, st := range p.staged {
		if err := st.Rollback(); err != nil {
			logger.Warn("failed to roll back staged asset", zap.Error(err))
		}
	}
}

func (p *pendingAssets) commit(as *assets.Store, logger *zap.Logger) {
	for _, path := range p.release {
		if as == nil {
			logger.Warn("no asset store to remove replaced asset", zap.String("path", path))
			continue
		}
		if err := as.Remove(path); err != nil {
			logger.Warn("failed to remove replaced asset", zap.String("path", path), zap.Error(err))
		}
	}
}

// stageAssets copies new uploads and decides which stored assets to release after the write
func (o *Operations) stageAssets(meta *schema.Meta, widgets schema.WidgetMap, doc, stored store.Document) (*pendingAssets, error) {
	pending := &pendingAssets{}

	for _, name := range meta.FieldNames {
		tag := meta.FieldTypes[name]
		if !tag.Kind.IsAsset() || meta.IsIgnored(name) {
			continue
		}
		w := widgets[name]

		oldPath := storedAssetPath(stored[name])
		newPath, deleting := assetState(w.Value)

		switch {
		case deleting:
			doc[name] = nil
			w.Value = nil
			if oldPath != "" {
				pending.release = append(pending.release, oldPath)
			}
		case newPath == "" || newPath == oldPath:
			if stored != nil {
				doc[name] = stored[name]
				if v, err := schema.Coerce(tag, stored[name]); err == nil {
					w.Value = v
				}
			}
		default:
			if o.assets == nil {
				pending.rollback(o.logger)
				return nil, fmt.Errorf("%w: %s.%s", ErrNoAssetStore, meta.Key, name)
			}
			staged, err := o.stage(w, newPath)
			if err != nil {
				pending.rollback(o.logger)
				return nil, fmt.Errorf("failed to stage %s: %w", name, err)
			}
			pending.staged = append(pending.staged, staged)

			var value interface{} = staged.File
			if staged.Image != nil {
				value = staged.Image
			}
			w.Value = value
			if doc[name], err = convert.StoredValue(tag, value); err != nil {
				pending.rollback(o.logger)
				return nil, err
			}
			if oldPath != "" {
				pending.release = append(pending.release, oldPath)
			}
		}
	}

	return pending, nil
}

func (o *Operations) stage(w *schema.Widget, src string) (*assets.Staged, error) {
	if w.Type.Kind == schema.KindImage {
		return o.assets.StageImage(src, w.TargetDir, w.Thumbnails, w.IsQuality)
	}
	return o.assets.StageFile(src, w.TargetDir)
}

func assetState(v interface{}) (string, bool) {
	switch val := v.(type) {
	case *schema.FileData:
		if val == nil {
			return "", false
		}
		return val.Path, val.IsDelete
	case *schema.ImageData:
		if val == nil {
			return "", false
		}
		return val.Path, val.IsDelete
	default:
		return "", false
	}
}

func storedAssetPath(v interface{}) string {
	sub, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	p, _ := sub["path"].(string)
	return p
}
