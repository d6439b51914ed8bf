package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/botrank/internal/checkpoint"
	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
)

// AssertionContext provides the store for final-state assertions.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *checkpoint.Engine
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s/%s", ev.Step, ev.Time, ev.Op, ev.Entity, ev.Category)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " error=%q", ev.Error)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertFinalCheckpoint:
		return assertFinalCheckpoint(result, a, actx)
	case AssertRecordTotal:
		return assertRecordTotal(result, a, actx)
	case AssertTraceCount:
		return assertTraceCount(result, a)
	case AssertLayoutContains:
		return assertLayoutContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalCheckpoint checks the latest checkpoint of an address.
func assertFinalCheckpoint(result *Result, a Assertion, actx *AssertionContext) error {
	got, ok, err := actx.Engine.LatestValue(actx.Ctx, a.Entity, a.Category)
	if err != nil {
		return fmt.Errorf("final_checkpoint %s/%s: %w", a.Entity, a.Category, err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalCheckpoint,
			Expected: fmt.Sprintf("checkpoint %d for %s/%s", a.Value, a.Entity, a.Category),
			Actual:   "no checkpoint",
			Trace:    result.Trace,
		}
	}
	if got != a.Value {
		return &AssertionError{
			Type:     AssertFinalCheckpoint,
			Expected: fmt.Sprintf("checkpoint %d for %s/%s", a.Value, a.Entity, a.Category),
			Actual:   fmt.Sprintf("checkpoint %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRecordTotal checks the sum of every record of an address.
func assertRecordTotal(result *Result, a Assertion, actx *AssertionContext) error {
	got, err := actx.Store.CountFiltered(actx.Ctx, a.Entity, a.Category, shard.Epoch, store.AfterOrEqual)
	if err != nil {
		return fmt.Errorf("record_total %s/%s: %w", a.Entity, a.Category, err)
	}
	if got != a.Value {
		return &AssertionError{
			Type:     AssertRecordTotal,
			Expected: fmt.Sprintf("records summing to %d for %s/%s", a.Value, a.Entity, a.Category),
			Actual:   fmt.Sprintf("sum %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(result *Result, a Assertion) error {
	if got := result.CountOp(a.Op); got != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("op %s exactly %d times", a.Op, a.Count),
			Actual:   fmt.Sprintf("found %d times", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertLayoutContains checks that an entry exists at path.
func assertLayoutContains(result *Result, a Assertion) error {
	for _, p := range result.Layout {
		if p == a.Path {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLayoutContains,
		Expected: fmt.Sprintf("entry %s", a.Path),
		Actual:   fmt.Sprintf("not among %d entries", len(result.Layout)),
		Trace:    result.Trace,
	}
}
