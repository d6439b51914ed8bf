// Package ranking builds the leaderboard from the latest checkpoints.
//
// Each entity is scored by the Wilson lower bound of its positive and
// negative checkpoint totals. Rows are ordered by score, highest first, with
// ties broken by entity name, and ranked 1..n consecutively.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/botrank/internal/score"
)

// Lister enumerates the addresses present in the store.
type Lister interface {
	Entities(ctx context.Context) ([]string, error)
	Categories(ctx context.Context, entity string) ([]string, error)
}

// CheckpointReader returns the latest checkpointed total for an address.
type CheckpointReader interface {
	LatestValue(ctx context.Context, entity, category string) (int64, bool, error)
}

// Options selects the categories and the confidence level.
type Options struct {
	Positive string
	Negative string
	Z        float64
	// Places is the number of decimals scores are rounded to.
	Places int
}

// DefaultOptions scores "good" against "bad" at 95% confidence.
func DefaultOptions() Options {
	return Options{Positive: "good", Negative: "bad", Z: score.DefaultZ, Places: 4}
}

// ErrInvalidOptions is returned when Options cannot produce a ranking.
var ErrInvalidOptions = errors.New("ranking: invalid options")

// Row is one leaderboard entry.
type Row struct {
	Rank     int
	Entity   string
	Score    float64
	Positive int64
	Negative int64
	// Totals holds the latest checkpoint of every category of the entity.
	Totals map[string]int64
}

// Build reads the latest checkpoint of every address and ranks entities.
// Addresses without a checkpoint count as zero.
func Build(ctx context.Context, ls Lister, cp CheckpointReader, opts Options) ([]Row, error) {
	if opts.Positive == "" || opts.Negative == "" || opts.Positive == opts.Negative {
		return nil, fmt.Errorf("%w: positive %q, negative %q", ErrInvalidOptions, opts.Positive, opts.Negative)
	}
	if opts.Z <= 0 {
		return nil, fmt.Errorf("%w: z must be positive, got %v", ErrInvalidOptions, opts.Z)
	}

	entities, err := ls.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}

	rows := make([]Row, 0, len(entities))
	for _, entity := range entities {
		categories, err := ls.Categories(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("list categories of %s: %w", entity, err)
		}
		totals := make(map[string]int64, len(categories))
		for _, category := range categories {
			v, ok, err := cp.LatestValue(ctx, entity, category)
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", entity, category, err)
			}
			if ok {
				totals[category] = v
			}
		}

		pos, neg := totals[opts.Positive], totals[opts.Negative]
		rows = append(rows, Row{
			Entity:   entity,
			Score:    score.Round(score.WilsonLowerBound(pos, neg, opts.Z), opts.Places),
			Positive: pos,
			Negative: neg,
			Totals:   totals,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Entity < rows[j].Entity
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
