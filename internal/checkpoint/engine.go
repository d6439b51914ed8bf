package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/botrank/internal/metrics"
	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
)

// Boundary selects how UpdateBatch treats records in the same second as
// the previous checkpoint.
type Boundary int

const (
	// BoundaryExclusive counts only records strictly after the previous
	// checkpoint.
	BoundaryExclusive Boundary = iota

	// BoundaryInclusive counts records at or after the previous checkpoint.
	BoundaryInclusive
)

// String returns the config spelling of b.
func (b Boundary) String() string {
	switch b {
	case BoundaryExclusive:
		return "exclusive"
	case BoundaryInclusive:
		return "inclusive"
	default:
		return fmt.Sprintf("Boundary(%d)", int(b))
	}
}

// ParseBoundary is the inverse of Boundary.String.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "exclusive":
		return BoundaryExclusive, nil
	case "inclusive":
		return BoundaryInclusive, nil
	}
	return 0, fmt.Errorf("%w: unknown checkpoint boundary %q", store.ErrInvalidArgument, s)
}

// direction is the range filter used for incremental deltas.
func (b Boundary) direction() store.Direction {
	if b == BoundaryInclusive {
		return store.AfterOrEqual
	}
	return store.After
}

// Engine writes and reads checkpoints on a store.
//
// Engine holds no mutable state of its own; like the store it assumes a
// single writer.
type Engine struct {
	store    *store.Store
	clock    Clock
	boundary Boundary
	ids      IDGenerator
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to timestamp checkpoints.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithBoundary sets the incremental boundary policy.
func WithBoundary(b Boundary) Option {
	return func(e *Engine) { e.boundary = b }
}

// WithIDGenerator sets the sweep id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		clock:    SystemClock{},
		boundary: BoundaryExclusive,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Boundary returns the configured boundary policy.
func (e *Engine) Boundary() Boundary {
	return e.boundary
}

// Batch recounts every record of (entity, category) and writes the total as
// a new checkpoint. It returns the address of the checkpoint entry.
//
// Checkpoints have one-second resolution. If a checkpoint with a different
// total was already written in the current clock second (for example, a
// record arrived between two Batch calls within one wall-clock second),
// Batch fails with a *ConflictError and writes nothing; retry in a later
// second. UpdateBatch fails the same way.
func (e *Engine) Batch(ctx context.Context, entity, category string) (string, error) {
	total, err := e.store.CountFiltered(ctx, entity, category, shard.Epoch, store.AfterOrEqual)
	if err != nil {
		return "", fmt.Errorf("batch %s/%s: %w", entity, category, err)
	}

	addr, err := e.write(ctx, entity, category, total, metrics.ModeFull)
	if err != nil {
		return "", fmt.Errorf("batch %s/%s: %w", entity, category, err)
	}
	return addr, nil
}

// UpdateBatch extends the latest checkpoint of (entity, category) with the
// records written since it, and writes the result as a new checkpoint.
// It fails with ErrNoCheckpoint if the category was never batched.
func (e *Engine) UpdateBatch(ctx context.Context, entity, category string) (string, error) {
	prev, ok, err := e.store.LatestCheckpoint(ctx, entity, category)
	if err != nil {
		return "", fmt.Errorf("update batch %s/%s: %w", entity, category, err)
	}
	if !ok {
		return "", fmt.Errorf("update batch %s/%s: %w", entity, category, ErrNoCheckpoint)
	}

	delta, err := e.store.CountFiltered(ctx, entity, category, prev.Time, e.boundary.direction())
	if err != nil {
		return "", fmt.Errorf("update batch %s/%s: %w", entity, category, err)
	}

	total, err := store.AddTotal(prev.Value, delta)
	if err != nil {
		return "", fmt.Errorf("update batch %s/%s: %w", entity, category, err)
	}

	addr, err := e.write(ctx, entity, category, total, metrics.ModeIncremental)
	if err != nil {
		return "", fmt.Errorf("update batch %s/%s: %w", entity, category, err)
	}

	e.logger.Debug("checkpoint extended",
		"entity", entity,
		"category", category,
		"previous", prev.Value,
		"since", shard.LeafName(prev.Time),
		"delta", delta,
	)
	return addr, nil
}

// LatestValue returns the total of the most recent checkpoint.
// ok is false if (entity, category) was never batched.
func (e *Engine) LatestValue(ctx context.Context, entity, category string) (int64, bool, error) {
	leaf, ok, err := e.store.LatestCheckpoint(ctx, entity, category)
	if err != nil || !ok {
		return 0, false, err
	}
	return leaf.Value, true, nil
}

// LatestTime returns the timestamp of the most recent checkpoint.
// ok is false if (entity, category) was never batched.
func (e *Engine) LatestTime(ctx context.Context, entity, category string) (time.Time, bool, error) {
	leaf, ok, err := e.store.LatestCheckpoint(ctx, entity, category)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return leaf.Time, true, nil
}

// write stores total as the checkpoint for the current clock second,
// guarding against a second checkpoint landing in the same leaf.
func (e *Engine) write(ctx context.Context, entity, category string, total int64, mode string) (string, error) {
	now := shard.Normalize(e.clock.Now())

	existing, ok, err := e.store.CheckpointAt(ctx, entity, category, now)
	if err != nil {
		return "", err
	}
	if ok && existing.Entries > 0 && (existing.Entries != 1 || existing.Value != total) {
		return "", &ConflictError{
			Entity:   entity,
			Category: category,
			Time:     now,
			Existing: existing.Value,
			Entries:  existing.Entries,
			Want:     total,
		}
	}

	addr, err := e.store.AppendCheckpoint(ctx, entity, category, now, total)
	if err != nil {
		return "", err
	}
	e.metrics.Checkpoint(mode)

	e.logger.Info("checkpoint written",
		"entity", entity,
		"category", category,
		"mode", mode,
		"time", shard.LeafName(now),
		"total", total,
	)
	return addr, nil
}
