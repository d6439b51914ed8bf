package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/roach88/botrank/internal/shard"
)

// Direction selects which side of a boundary CountFiltered counts.
type Direction int

const (
	// Before counts records strictly before the boundary.
	Before Direction = iota
	// BeforeOrEqual counts records at or before the boundary.
	BeforeOrEqual
	// After counts records strictly after the boundary.
	After
	// AfterOrEqual counts records at or after the boundary.
	AfterOrEqual
)

var directionNames = map[Direction]string{
	Before:        "before",
	BeforeOrEqual: "before_or_equal",
	After:         "after",
	AfterOrEqual:  "after_or_equal",
}

// Valid reports whether d is one of the four defined directions.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

// String returns the snake_case name of d.
func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// upper reports whether the boundary is an upper bound.
func (d Direction) upper() bool {
	return d == Before || d == BeforeOrEqual
}

// admitsComponent applies the numeric year/month/day predicate. strict is
// true when v lies strictly inside the range, not on the bound.
func (d Direction) admitsComponent(v, bound int64) (keep, strict bool) {
	if d.upper() {
		return v <= bound, v < bound
	}
	return v >= bound, v > bound
}

// admitsLeaf applies the full timestamp predicate.
func (d Direction) admitsLeaf(t, boundary time.Time) bool {
	switch d {
	case Before:
		return t.Before(boundary)
	case BeforeOrEqual:
		return !t.After(boundary)
	case After:
		return t.After(boundary)
	case AfterOrEqual:
		return !t.Before(boundary)
	}
	return false
}

// scanNode is one directory on the scan frontier.
type scanNode struct {
	path string
	// relaxed marks a subtree already strictly inside the range, so deeper
	// component bounds no longer apply (RangeHierarchical only).
	relaxed bool
}

// CountFiltered returns the sum of all record values for (entity, category)
// whose timestamp lies on the dir side of boundary. The boundary is
// truncated to one second. A category that was never written counts 0.
//
// An invalid direction fails with ErrInvalidDirection before the
// filesystem is touched. See the package documentation for how
// year/month/day bounds are applied in each RangeMode.
func (s *Store) CountFiltered(ctx context.Context, entity, category string, boundary time.Time, dir Direction) (int64, error) {
	if !dir.Valid() {
		return 0, fmt.Errorf("count filtered: %w: %d", ErrInvalidDirection, int(dir))
	}
	if err := validateAddress(entity, category); err != nil {
		return 0, fmt.Errorf("count filtered: %w", err)
	}

	boundary = shard.Normalize(boundary)
	bounds := []int64{
		int64(boundary.Year()),
		int64(boundary.Month()),
		int64(boundary.Day()),
	}
	hierarchical := s.rangeMode == RangeHierarchical

	frontier := []scanNode{{path: s.categoryDir(entity, category)}}
	for _, bound := range bounds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var next []scanNode
		for _, n := range frontier {
			entries, err := readDir(n.path)
			if err != nil {
				return 0, fmt.Errorf("count filtered: %w", err)
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				v, ok := shard.ParseUint(e.Name())
				if !ok {
					continue
				}
				keep, strict := dir.admitsComponent(v, bound)
				if hierarchical && n.relaxed {
					keep, strict = true, true
				}
				if !keep {
					continue
				}
				next = append(next, scanNode{
					path:    filepath.Join(n.path, e.Name()),
					relaxed: hierarchical && (n.relaxed || strict),
				})
			}
		}
		frontier = next
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var (
		total  int64
		leaves int
	)
	for _, n := range frontier {
		entries, err := readDir(n.path)
		if err != nil {
			return 0, fmt.Errorf("count filtered: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			t, ok := shard.Decode(e.Name())
			if !ok || !dir.admitsLeaf(t, boundary) {
				continue
			}
			leaf, err := readLeaf(filepath.Join(n.path, e.Name()))
			if err != nil {
				return 0, fmt.Errorf("count filtered: %w", err)
			}
			if total, err = AddTotal(total, leaf.Value); err != nil {
				return 0, fmt.Errorf("count filtered: %w", err)
			}
			leaves++
		}
	}
	s.metrics.Scan(dir.String(), leaves)

	s.logger.Debug("range scanned",
		"entity", entity,
		"category", category,
		"boundary", shard.LeafName(boundary),
		"direction", dir.String(),
		"leaves", leaves,
		"total", total,
	)
	return total, nil
}
