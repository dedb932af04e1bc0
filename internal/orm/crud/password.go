package crud

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
	"github.com/conduit-lang/docmodel/internal/store"
)

// hashPassword hashes a plain text password using bcrypt.
// Rejects passwords longer than 72 bytes (bcrypt's maximum).
func (o *Operations) hashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("password exceeds maximum length of 72 bytes")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), o.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// checkPassword compares a plain text password with a hashed password
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// VerifyPassword checks a plain text password against the stored hash of a field
func (o *Operations) VerifyPassword(ctx context.Context, model, hash, field, plain string) (bool, error) {
	_, _, doc, err := o.loadPasswordField(ctx, model, hash, field)
	if err != nil {
		return false, err
	}

	stored, _ := doc[field].(string)
	if stored == "" {
		return false, nil
	}
	return checkPassword(plain, stored), nil
}

// UpdatePassword replaces a stored password after verifying the current one.
// The new password must satisfy the field's constraints.
func (o *Operations) UpdatePassword(ctx context.Context, model, hash, field, oldPassword, newPassword string) error {
	mc, widget, doc, err := o.loadPasswordField(ctx, model, hash, field)
	if err != nil {
		return err
	}

	stored, _ := doc[field].(string)
	if stored != "" && !checkPassword(oldPassword, stored) {
		return ErrPasswordMismatch
	}

	widget.Value = newPassword
	widget.Required = true
	widget.Errors = nil
	o.engine.ValidateField(widget)
	if widget.HasErrors() {
		errs := validation.NewValidationErrors(model)
		for _, msg := range widget.Errors {
			errs.Add(field, msg)
		}
		return errs
	}

	hashed, err := o.hashPassword(newPassword)
	if err != nil {
		return err
	}

	id, _ := doc.ID()
	doc[field] = hashed
	doc[schema.FieldUpdatedAt] = o.now()

	n, err := mc.Collection.ReplaceOne(ctx, store.ByID(id), doc)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, hash)
	}

	o.logger.Info("password updated",
		zap.String("model", model),
		zap.String("hash", hash),
		zap.String("field", field))
	return nil
}

func (o *Operations) loadPasswordField(ctx context.Context, model, hash, field string) (*cache.ModelCache, *schema.Widget, store.Document, error) {
	mc, err := o.cache.GetOrInit(ctx, model)
	if err != nil {
		return nil, nil, nil, err
	}

	w, ok := mc.Widgets[field]
	if !ok || w.Type.Kind != schema.KindPassword {
		return nil, nil, nil, fmt.Errorf("%w: %s is not a password field of %s", ErrUnknownField, field, model)
	}

	id, err := store.ObjectIDFromHex(hash)
	if err != nil {
		return nil, nil, nil, err
	}

	doc, err := mc.Collection.FindOne(ctx, store.ByID(id))
	if err != nil {
		return nil, nil, nil, err
	}
	return mc, w, doc, nil
}
