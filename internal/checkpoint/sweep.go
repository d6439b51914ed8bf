package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/botrank/internal/store"
)

// batchFunc checkpoints one (entity, category) pair.
type batchFunc func(ctx context.Context, entity, category string) (string, error)

// BatchAllCategories runs Batch for every category of entity, in sorted
// order, and returns the checkpoint addresses.
func (e *Engine) BatchAllCategories(ctx context.Context, entity string) ([]string, error) {
	sweep := e.ids.Generate()
	return e.sweepEntity(ctx, sweep, entity, e.Batch)
}

// BatchAllEntities runs BatchAllCategories for every entity in the store.
// The outer slice is ordered by entity name.
func (e *Engine) BatchAllEntities(ctx context.Context) ([][]string, error) {
	return e.sweepStore(ctx, "batch", e.Batch)
}

// UpdateAllCategories runs UpdateBatch for every category of entity.
// Categories that have never been batched get a full Batch instead.
func (e *Engine) UpdateAllCategories(ctx context.Context, entity string) ([]string, error) {
	sweep := e.ids.Generate()
	return e.sweepEntity(ctx, sweep, entity, e.updateOrBatch)
}

// UpdateAllEntities runs UpdateAllCategories for every entity in the store.
func (e *Engine) UpdateAllEntities(ctx context.Context) ([][]string, error) {
	return e.sweepStore(ctx, "update", e.updateOrBatch)
}

// updateOrBatch falls back to a full recount when there is nothing to
// extend.
func (e *Engine) updateOrBatch(ctx context.Context, entity, category string) (string, error) {
	addr, err := e.UpdateBatch(ctx, entity, category)
	if errors.Is(err, ErrNoCheckpoint) {
		return e.Batch(ctx, entity, category)
	}
	return addr, err
}

func (e *Engine) sweepStore(ctx context.Context, kind string, fn batchFunc) ([][]string, error) {
	sweep := e.ids.Generate()

	entities, err := e.store.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", sweep, err)
	}
	e.logger.Info("checkpoint sweep started", "sweep", sweep, "kind", kind, "entities", len(entities))

	out := make([][]string, 0, len(entities))
	written := 0
	for _, entity := range entities {
		addrs, err := e.sweepEntity(ctx, sweep, entity, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, addrs)
		written += len(addrs)
	}

	e.logger.Info("checkpoint sweep finished", "sweep", sweep, "kind", kind, "checkpoints", written)
	return out, nil
}

func (e *Engine) sweepEntity(ctx context.Context, sweep, entity string, fn batchFunc) ([]string, error) {
	categories, err := e.store.Categories(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", sweep, err)
	}

	addrs := make([]string, 0, len(categories))
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		addr, err := fn(ctx, entity, category)
		if errors.Is(err, store.ErrInvalidArgument) {
			e.logger.Warn("skipping unusable category directory",
				"sweep", sweep, "entity", entity, "category", category, "err", err)
			continue
		}
		if IsConflict(err) {
			e.logger.Warn("skipping conflicting checkpoint",
				"sweep", sweep, "entity", entity, "category", category, "err", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sweep %s: %w", sweep, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
