package harness

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/botrank/internal/checkpoint"
	"github.com/roach88/botrank/internal/ranking"
	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
	"github.com/roach88/botrank/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and sweep ids.
type Harness struct {
	store  *store.Store
	engine *checkpoint.Engine
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario in a fresh temporary store and returns the
// result. The store is removed before Run returns; its layout is kept in
// Result.Layout.
//
// Execution flow:
// 1. Create a store in a new temporary directory
// 2. Execute steps with expect validation
// 3. Evaluate assertions
// 4. Capture the layout
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "botrank-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	return RunIn(scenario, dir)
}

// RunIn executes a scenario in a store rooted at dir and leaves the store
// in place.
func RunIn(scenario *Scenario, dir string) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h, err := newHarness(scenario, dir)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute steps[%d]: %w", i, err)
		}
	}

	layout, err := Layout(dir)
	if err != nil {
		return nil, err
	}
	result.Layout = layout

	actx := &AssertionContext{Ctx: ctx, Store: h.store, Engine: h.engine}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(scenario *Scenario, dir string) (*Harness, error) {
	// validateScenario has already checked these parse.
	start, _ := parseLeafTime(scenario.Start)
	boundary := checkpoint.BoundaryExclusive
	if scenario.Boundary != "" {
		boundary, _ = checkpoint.ParseBoundary(scenario.Boundary)
	}
	mode := store.RangeIndependent
	if scenario.RangeMode != "" {
		mode, _ = store.ParseRangeMode(scenario.RangeMode)
	}

	// Suppress logs in tests.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(dir, store.WithLogger(logger), store.WithRangeMode(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}

	clock := testutil.NewDeterministicClock(start)
	eng := checkpoint.New(st,
		checkpoint.WithClock(clock),
		checkpoint.WithBoundary(boundary),
		checkpoint.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)),
		checkpoint.WithLogger(logger),
	)

	return &Harness{store: st, engine: eng, clock: clock, logger: logger}, nil
}

// executeStep runs one step and validates its expect clause. Step failures
// are recorded in result; only harness faults are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{
		Step:     index,
		Op:       step.Op,
		Entity:   step.Entity,
		Category: step.Category,
	}

	var (
		value   int64
		found   = true
		at      time.Time
		order   []string
		addrs   []string
		stepErr error
	)

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return err
		}
		h.clock.Advance(d)

	case OpAppend:
		ts, err := resolveAt(step.At, h.clock.Now())
		if err != nil {
			return err
		}
		value = 1
		if step.Value != nil {
			value = *step.Value
		}
		var addr string
		addr, stepErr = h.store.Append(ctx, step.Entity, step.Category, ts, value)
		addrs = appendAddr(addrs, addr)

	case OpBatch, OpUpdate:
		fn := h.engine.Batch
		if step.Op == OpUpdate {
			fn = h.engine.UpdateBatch
		}
		var addr string
		if addr, stepErr = fn(ctx, step.Entity, step.Category); stepErr == nil {
			addrs = appendAddr(addrs, addr)
			value, _, stepErr = h.engine.LatestValue(ctx, step.Entity, step.Category)
		}

	case OpBatchAllCategories, OpUpdateAllCategories:
		fn := h.engine.BatchAllCategories
		if step.Op == OpUpdateAllCategories {
			fn = h.engine.UpdateAllCategories
		}
		var written []string
		written, stepErr = fn(ctx, step.Entity)
		for _, addr := range written {
			addrs = appendAddr(addrs, addr)
		}

	case OpBatchAllEntities, OpUpdateAllEntities:
		fn := h.engine.BatchAllEntities
		if step.Op == OpUpdateAllEntities {
			fn = h.engine.UpdateAllEntities
		}
		var written [][]string
		written, stepErr = fn(ctx)
		for _, group := range written {
			for _, addr := range group {
				addrs = appendAddr(addrs, addr)
			}
		}

	case OpLatest:
		value, found, stepErr = h.engine.LatestValue(ctx, step.Entity, step.Category)

	case OpLatestTime:
		at, found, stepErr = h.engine.LatestTime(ctx, step.Entity, step.Category)

	case OpLatestRecord:
		value, found, stepErr = h.store.LatestValue(ctx, step.Entity, step.Category)

	case OpCount:
		ts, err := resolveAt(step.At, h.clock.Now())
		if err != nil {
			return err
		}
		dir, err := store.ParseDirection(step.Direction)
		if err != nil {
			return err
		}
		value, stepErr = h.store.CountFiltered(ctx, step.Entity, step.Category, ts, dir)

	case OpRank:
		var rows []ranking.Row
		rows, stepErr = ranking.Build(ctx, h.store, h.engine, ranking.DefaultOptions())
		for _, row := range rows {
			order = append(order, row.Entity)
		}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	ev.Time = shard.LeafName(h.clock.Now())
	ev.Value = value
	for _, addr := range addrs {
		ev.Addresses = append(ev.Addresses, h.relative(addr))
	}
	if stepErr != nil {
		ev.Error = stepErr.Error()
	}
	result.AddTrace(ev)

	h.checkExpect(index, step, stepErr, value, found, at, order, result)
	return nil
}

// checkExpect compares a step outcome with its expect clause.
func (h *Harness) checkExpect(index int, step Step, stepErr error, value int64, found bool, at time.Time, order []string, result *Result) {
	exp := step.Expect
	prefix := fmt.Sprintf("steps[%d] %s", index, step.Op)

	if exp == nil || exp.Error == "" {
		if stepErr != nil {
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, stepErr))
			return
		}
	} else {
		if stepErr == nil {
			result.AddError(fmt.Sprintf("%s: expected error containing %q, got success", prefix, exp.Error))
		} else if !strings.Contains(stepErr.Error(), exp.Error) {
			result.AddError(fmt.Sprintf("%s: expected error containing %q, got %q", prefix, exp.Error, stepErr.Error()))
		}
		return
	}
	if exp == nil {
		return
	}

	if exp.Absent && found {
		result.AddError(fmt.Sprintf("%s: expected absent, found %d", prefix, value))
	}
	if !exp.Absent && !found {
		result.AddError(fmt.Sprintf("%s: expected a value, found none", prefix))
	}
	if exp.Value != nil && *exp.Value != value {
		result.AddError(fmt.Sprintf("%s: expected value %d, got %d", prefix, *exp.Value, value))
	}
	if exp.Time != "" {
		if got := shard.LeafName(at); got != exp.Time {
			result.AddError(fmt.Sprintf("%s: expected time %s, got %s", prefix, exp.Time, got))
		}
	}
	if exp.Order != nil && strings.Join(exp.Order, ",") != strings.Join(order, ",") {
		result.AddError(fmt.Sprintf("%s: expected order %v, got %v", prefix, exp.Order, order))
	}
}

// relative returns addr relative to the store root, slash-separated.
func (h *Harness) relative(addr string) string {
	rel, err := filepath.Rel(h.store.Root(), addr)
	if err != nil {
		return filepath.ToSlash(addr)
	}
	return filepath.ToSlash(rel)
}

func appendAddr(addrs []string, addr string) []string {
	if addr == "" {
		return addrs
	}
	return append(addrs, addr)
}

// Layout lists every non-directory entry under root, relative to root,
// slash-separated and sorted.
func Layout(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list layout: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
