package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/roach88/botrank/internal/metrics"
	"github.com/roach88/botrank/internal/shard"
)

// Append records value for (entity, category) at ts and returns the address
// of the entry written.
//
// Shard directories are created as needed. If an entry with the same value
// already exists in the same second, it is left untouched and its address is
// returned. Existing entries are never modified or removed.
func (s *Store) Append(ctx context.Context, entity, category string, ts time.Time, value int64) (string, error) {
	if err := validateAddress(entity, category); err != nil {
		return "", fmt.Errorf("append record: %w", err)
	}

	addr, err := s.writeEntry(ctx, s.categoryDir(entity, category), ts, value)
	if err != nil {
		return "", fmt.Errorf("append record: %w", err)
	}
	s.metrics.Append(metrics.KindRecord)

	s.logger.Debug("record appended",
		"entity", entity,
		"category", category,
		"time", shard.LeafName(ts),
		"value", value,
	)
	return addr, nil
}

// AppendCheckpoint writes a cumulative total for (entity, category) at ts
// under the category's checkpoint namespace. It has the same idempotency
// rules as Append and is meant to be called by the checkpoint engine only.
func (s *Store) AppendCheckpoint(ctx context.Context, entity, category string, ts time.Time, total int64) (string, error) {
	if err := validateAddress(entity, category); err != nil {
		return "", fmt.Errorf("append checkpoint: %w", err)
	}

	addr, err := s.writeEntry(ctx, s.summaryDir(entity, category), ts, total)
	if err != nil {
		return "", fmt.Errorf("append checkpoint: %w", err)
	}
	s.metrics.Append(metrics.KindCheckpoint)
	return addr, nil
}

// writeEntry creates base/<shard path of ts>/<value>.
func (s *Store) writeEntry(ctx context.Context, base string, ts time.Time, value int64) (string, error) {
	if !shard.ValidYear(ts) {
		return "", fmt.Errorf("%w: %s", ErrInvalidTime, ts.UTC().Format(time.RFC3339))
	}
	if value < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeValue, value)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(base, shard.Encode(ts).Join())
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", err
	}

	entry := filepath.Join(dir, strconv.FormatInt(value, 10))
	f, err := os.OpenFile(entry, os.O_WRONLY|os.O_CREATE, filePerm)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return entry, nil
}
