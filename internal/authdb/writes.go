package authdb

import (
	"context"
	"fmt"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Create checks uniqueness, inserts, and reads the stored document back (the
// store does not return the full document on insert).
func (a *Adapter) Create(ctx context.Context, model string, data map[string]any, selectFields []string) (types.Document, error) {
	doc, err := types.MapFromGo(data)
	if err != nil {
		return nil, errors.NewError("create", model, err)
	}
	if err := a.assertUnique(ctx, model, doc, ""); err != nil {
		return nil, errors.NewError("create", model, err)
	}

	id, err := a.store.Insert(ctx, model, doc)
	if err != nil {
		return nil, errors.NewError("create", model, err)
	}
	stored, err := a.store.Get(ctx, model, id)
	if err != nil {
		return nil, errors.NewError("create", model, err)
	}
	return stored.Project(selectFields), nil
}

// Update patches the single document matching the request and returns its
// new state. No match is benign: the return is nil, not an error.
func (a *Adapter) Update(ctx context.Context, req core.Request, update map[string]any) (types.Document, error) {
	patch, err := types.MapFromGo(update)
	if err != nil {
		return nil, errors.NewError("update", req.Model, err)
	}

	target, err := a.FindOne(ctx, req)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	if err := a.assertUnique(ctx, req.Model, patch, target.ID()); err != nil {
		return nil, errors.NewError("update", req.Model, err)
	}
	if err := a.store.Patch(ctx, req.Model, target.ID(), patch); err != nil {
		return nil, errors.NewError("update", req.Model, err)
	}

	updated, err := a.store.Get(ctx, req.Model, target.ID())
	if err != nil {
		return nil, errors.NewError("update", req.Model, err)
	}
	return updated.Project(req.Select), nil
}

// UpdateMany patches every matching document in bounded batches and returns
// how many were touched. Batches are not atomic as a whole: an interrupted
// run leaves earlier documents patched, and reapplying the same payload is
// safe.
func (a *Adapter) UpdateMany(ctx context.Context, req core.Request, update map[string]any) (int, error) {
	patch, err := types.MapFromGo(update)
	if err != nil {
		return 0, errors.NewError("updateMany", req.Model, err)
	}

	if err := a.rejectUniqueFanout(ctx, req, patch); err != nil {
		return 0, errors.NewError("updateMany", req.Model, err)
	}

	count := 0
	cursor := ""
	for {
		page, err := a.findPage(ctx, req, a.batchSize, cursor)
		if err != nil {
			return count, errors.NewError("updateMany", req.Model, err)
		}
		for _, doc := range page.Items {
			if err := a.assertUnique(ctx, req.Model, patch, doc.ID()); err != nil {
				return count, errors.NewError("updateMany", req.Model, err)
			}
			if err := a.store.Patch(ctx, req.Model, doc.ID(), patch); err != nil {
				return count, errors.NewError("updateMany", req.Model, err)
			}
			count++
		}
		if page.IsComplete {
			return count, nil
		}
		cursor = page.Cursor
	}
}

// Delete removes the single document matching the request. No match is a
// no-op.
func (a *Adapter) Delete(ctx context.Context, req core.Request) error {
	target, err := a.FindOne(ctx, req)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := a.store.Delete(ctx, req.Model, target.ID()); err != nil && !errors.IsNotFound(err) {
		return errors.NewError("delete", req.Model, err)
	}
	return nil
}

// DeleteMany removes every matching document in bounded batches and returns
// how many were removed.
func (a *Adapter) DeleteMany(ctx context.Context, req core.Request) (int, error) {
	count := 0
	cursor := ""
	for {
		page, err := a.findPage(ctx, req, a.batchSize, cursor)
		if err != nil {
			return count, errors.NewError("deleteMany", req.Model, err)
		}
		for _, doc := range page.Items {
			if err := a.store.Delete(ctx, req.Model, doc.ID()); err != nil {
				if errors.IsNotFound(err) {
					continue
				}
				return count, errors.NewError("deleteMany", req.Model, err)
			}
			count++
		}
		if page.IsComplete {
			return count, nil
		}
		// Deleting scanned documents does not invalidate the cursor: it is a
		// key position, not a document reference.
		cursor = page.Cursor
	}
}

// rejectUniqueFanout fails an UpdateMany that would stamp one unique value
// onto more than one document, before anything mutates.
func (a *Adapter) rejectUniqueFanout(ctx context.Context, req core.Request, patch types.Document) error {
	touchesUnique := false
	for field := range patch {
		if a.schema.IsUniqueField(req.Model, field) {
			touchesUnique = true
			break
		}
	}
	if !touchesUnique {
		return nil
	}

	probe, err := a.findPage(ctx, req, 2, "")
	if err != nil {
		return err
	}
	if len(probe.Items) > 1 || !probe.IsComplete {
		return fmt.Errorf("%w: update sets a unique field across multiple documents",
			errors.ErrConstraintViolation)
	}
	return nil
}
