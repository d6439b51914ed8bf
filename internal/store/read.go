package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/roach88/botrank/internal/shard"
)

// Leaf is a second-resolution leaf directory and its aggregated value.
type Leaf struct {
	// Path is the leaf directory's address.
	Path string

	// Time is the timestamp decoded from the leaf name.
	Time time.Time

	// Value is the sum of all digit-named entries in the leaf.
	Value int64

	// Entries is the number of digit-named entries that make up Value.
	Entries int
}

// Latest returns the most recent record leaf for (entity, category).
// ok is false if nothing has ever been written for the pair.
func (s *Store) Latest(ctx context.Context, entity, category string) (Leaf, bool, error) {
	if err := validateAddress(entity, category); err != nil {
		return Leaf{}, false, fmt.Errorf("latest record: %w", err)
	}
	leaf, ok, err := s.latestIn(ctx, s.categoryDir(entity, category))
	if err != nil {
		return Leaf{}, false, fmt.Errorf("latest record: %w", err)
	}
	return leaf, ok, nil
}

// LatestValue returns the value of the most recent record leaf.
func (s *Store) LatestValue(ctx context.Context, entity, category string) (int64, bool, error) {
	leaf, ok, err := s.Latest(ctx, entity, category)
	if err != nil || !ok {
		return 0, false, err
	}
	return leaf.Value, true, nil
}

// LatestTime returns the timestamp of the most recent record leaf.
func (s *Store) LatestTime(ctx context.Context, entity, category string) (time.Time, bool, error) {
	leaf, ok, err := s.Latest(ctx, entity, category)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return leaf.Time, true, nil
}

// LatestCheckpoint returns the most recently written checkpoint leaf for
// (entity, category). ok is false if the category was never checkpointed.
func (s *Store) LatestCheckpoint(ctx context.Context, entity, category string) (Leaf, bool, error) {
	if err := validateAddress(entity, category); err != nil {
		return Leaf{}, false, fmt.Errorf("latest checkpoint: %w", err)
	}
	leaf, ok, err := s.latestIn(ctx, s.summaryDir(entity, category))
	if err != nil {
		return Leaf{}, false, fmt.Errorf("latest checkpoint: %w", err)
	}
	return leaf, ok, nil
}

// CheckpointAt returns the checkpoint leaf at exactly ts, if one exists.
func (s *Store) CheckpointAt(ctx context.Context, entity, category string, ts time.Time) (Leaf, bool, error) {
	if err := validateAddress(entity, category); err != nil {
		return Leaf{}, false, fmt.Errorf("checkpoint at: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Leaf{}, false, err
	}
	if !shard.ValidYear(ts) {
		return Leaf{}, false, fmt.Errorf("checkpoint at: %w", ErrInvalidTime)
	}

	dir := filepath.Join(s.summaryDir(entity, category), shard.Encode(ts).Join())
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Leaf{}, false, nil
	}
	if err != nil {
		return Leaf{}, false, fmt.Errorf("checkpoint at: %w", err)
	}
	if !info.IsDir() {
		return Leaf{}, false, nil
	}

	leaf, err := readLeaf(dir)
	if err != nil {
		return Leaf{}, false, fmt.Errorf("checkpoint at: %w", err)
	}
	return leaf, true, nil
}

// Entities returns the names of all entity directories, sorted.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := childDirs(s.root)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return names, nil
}

// Categories returns the names of all category directories of entity, sorted.
func (s *Store) Categories(ctx context.Context, entity string) ([]string, error) {
	if err := validateName("entity", entity); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := childDirs(filepath.Join(s.root, entity))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return names, nil
}

// Children returns the names of the immediate children (files and
// directories) of the path formed by joining elems under the root. A missing
// path yields an empty list.
func (s *Store) Children(ctx context.Context, elems ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, e := range elems {
		if err := validateName("path element", e); err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
	}

	entries, err := readDir(filepath.Join(append([]string{s.root}, elems...)...))
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// latestIn descends from dir along the greatest digit-named directories and
// returns the greatest leaf found at the bottom.
func (s *Store) latestIn(ctx context.Context, dir string) (Leaf, bool, error) {
	cur := dir
	for {
		if err := ctx.Err(); err != nil {
			return Leaf{}, false, err
		}
		entries, err := readDir(cur)
		if err != nil {
			return Leaf{}, false, err
		}

		if next, ok := maxNumericDir(entries); ok {
			cur = filepath.Join(cur, next)
			continue
		}

		name, ok := maxLeafDir(entries)
		if !ok {
			return Leaf{}, false, nil
		}
		leaf, err := readLeaf(filepath.Join(cur, name))
		if err != nil {
			return Leaf{}, false, err
		}
		return leaf, true, nil
	}
}

// maxNumericDir returns the digit-named directory with the greatest numeric
// value. Equal values ("9", "09") are broken by name.
func maxNumericDir(entries []os.DirEntry) (string, bool) {
	var (
		best    string
		bestVal int64
		found   bool
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, ok := shard.ParseUint(e.Name())
		if !ok {
			continue
		}
		if !found || v > bestVal || (v == bestVal && e.Name() > best) {
			best, bestVal, found = e.Name(), v, true
		}
	}
	return best, found
}

// maxLeafDir returns the latest directory whose name decodes as a leaf
// timestamp. All candidates share one day directory.
func maxLeafDir(entries []os.DirEntry) (string, bool) {
	var (
		best     string
		bestTime time.Time
		found    bool
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		t, ok := shard.Decode(e.Name())
		if !ok {
			continue
		}
		if !found || t.After(bestTime) || (t.Equal(bestTime) && e.Name() > best) {
			best, bestTime, found = e.Name(), t, true
		}
	}
	return best, found
}

// readLeaf sums the digit-named entries of a leaf directory.
func readLeaf(dir string) (Leaf, error) {
	leaf := Leaf{Path: dir}
	if t, ok := shard.Decode(dir); ok {
		leaf.Time = t
	}

	entries, err := readDir(dir)
	if err != nil {
		return Leaf{}, err
	}
	for _, e := range entries {
		v, ok := shard.ParseUint(e.Name())
		if !ok {
			continue
		}
		total, err := AddTotal(leaf.Value, v)
		if err != nil {
			return Leaf{}, fmt.Errorf("read leaf %s: %w", filepath.Base(dir), err)
		}
		leaf.Value = total
		leaf.Entries++
	}
	return leaf, nil
}

// readDir lists dir, treating a missing directory as empty.
func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// childDirs returns the sorted names of the directories directly under dir.
func childDirs(dir string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
