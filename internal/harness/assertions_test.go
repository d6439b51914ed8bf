package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertTraceCount(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Op: OpAppend})
	result.AddTrace(TraceEvent{Op: OpAppend})
	result.AddTrace(TraceEvent{Op: OpBatch})

	assert.NoError(t, assertTraceCount(result, Assertion{Type: AssertTraceCount, Op: OpAppend, Count: 2}))
	assert.NoError(t, assertTraceCount(result, Assertion{Type: AssertTraceCount, Op: OpUpdate, Count: 0}))

	err := assertTraceCount(result, Assertion{Type: AssertTraceCount, Op: OpBatch, Count: 3})
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "found 1 times", aerr.Actual)
}

func TestAssertLayoutContains(t *testing.T) {
	result := NewResult()
	result.Layout = []string{"bot/good/2018/09/08/2018-09-08 10:00:00/1"}

	assert.NoError(t, assertLayoutContains(result, Assertion{Path: "bot/good/2018/09/08/2018-09-08 10:00:00/1"}))
	assert.Error(t, assertLayoutContains(result, Assertion{Path: "bot/good/summary"}))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalCheckpoint,
		Expected: "checkpoint 3",
		Actual:   "checkpoint 2",
		Trace: []TraceEvent{
			{Step: 0, Op: OpAppend, Entity: "bot", Category: "good", Time: "2018-09-08 10:00:00"},
			{Step: 1, Op: OpUpdate, Entity: "bot", Category: "good", Time: "2018-09-08 10:00:00", Error: "no prior checkpoint"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: final_checkpoint")
	assert.Contains(t, msg, "Expected: checkpoint 3")
	assert.Contains(t, msg, "[0] 2018-09-08 10:00:00 append bot/good")
	assert.Contains(t, msg, `error="no prior checkpoint"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
