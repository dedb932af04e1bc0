package crud

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/orm/hooks"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// DeleteResult reports the outcome of a delete
type DeleteResult struct {
	OK      bool
	Message string
	Count   int64
}

// Delete removes the stored document of an instance and releases its assets
func (o *Operations) Delete(ctx context.Context, inst *Instance) (DeleteResult, error) {
	mc, err := o.cache.GetOrInit(ctx, inst.Model)
	if err != nil {
		return DeleteResult{}, err
	}
	meta := mc.Meta

	if !meta.CanDelete {
		return DeleteResult{Message: "deleting is not allowed"}, fmt.Errorf("%w: %s %s", ErrOperationNotAllowed, OperationDelete, inst.Model)
	}
	if inst.Hash == "" {
		return DeleteResult{Message: "instance has not been saved"}, nil
	}

	id, err := store.ObjectIDFromHex(inst.Hash)
	if err != nil {
		return DeleteResult{}, err
	}

	stored, err := mc.Collection.FindOne(ctx, store.ByID(id))
	if err != nil {
		if store.IsNotFound(err) {
			return DeleteResult{Message: "document not found"}, nil
		}
		return DeleteResult{}, err
	}

	h := o.hooks.For(inst.Model)
	ev := &hooks.Event{
		Type:       hooks.PreDelete,
		Model:      inst.Model,
		Collection: meta.CollectionName,
		Hash:       inst.Hash,
		Document:   stored,
	}
	if err := h.Run(ctx, ev); err != nil {
		return DeleteResult{Message: err.Error()}, err
	}

	count, err := mc.Collection.DeleteOne(ctx, store.ByID(id))
	if err != nil {
		return DeleteResult{}, fmt.Errorf("failed to delete document: %w", err)
	}
	if count == 0 {
		return DeleteResult{Message: "document not found"}, nil
	}

	o.scope.Counter("delete").Inc(1)
	o.logger.Info("document deleted",
		zap.String("model", inst.Model),
		zap.String("hash", inst.Hash))

	ev.Type = hooks.PostDelete
	postErr := h.Run(ctx, ev)
	if postErr != nil {
		o.logger.Warn("post-delete hook failed",
			zap.String("model", inst.Model),
			zap.String("hash", inst.Hash),
			zap.Error(postErr))
	}

	o.releaseAssets(meta, stored)

	inst.Hash = ""
	inst.CreatedAt = time.Time{}
	inst.UpdatedAt = time.Time{}

	return DeleteResult{OK: true, Message: "document deleted", Count: count}, postErr
}

func (o *Operations) releaseAssets(meta *schema.Meta, stored store.Document) {
	pending := &pendingAssets{}
	for _, name := range meta.FieldNames {
		if !meta.FieldTypes[name].Kind.IsAsset() {
			continue
		}
		if p := storedAssetPath(stored[name]); p != "" {
			pending.release = append(pending.release, p)
		}
	}
	pending.commit(o.assets, o.logger)
}
