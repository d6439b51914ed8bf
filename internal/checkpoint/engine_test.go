package checkpoint

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
)

func requireLatest(t *testing.T, e *Engine, entity, category string, want int64) {
	t.Helper()
	got, ok, err := e.LatestValue(context.Background(), entity, category)
	require.NoError(t, err)
	require.True(t, ok, "expected a checkpoint for %s/%s", entity, category)
	assert.Equal(t, want, got)
}

func TestLatest_NeverBatched(t *testing.T) {
	e, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := st.Append(ctx, "u1", "good", t0, 1)
	require.NoError(t, err)

	_, ok, err := e.LatestValue(ctx, "u1", "good")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = e.LatestTime(ctx, "u1", "good")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatch_SumsAllAppends(t *testing.T) {
	e, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	values := []int64{3, 1, 4, 1, 5, 9, 2, 6}
	var want int64
	for i, v := range values {
		_, err := st.Append(ctx, "u1", "good", t0.Add(-time.Duration(i)*time.Hour), v)
		require.NoError(t, err)
		want += v
	}

	addr, err := e.Batch(ctx, "u1", "good")
	require.NoError(t, err)

	wantAddr := filepath.Join(st.Root(), "u1", "good", store.SummaryKey,
		"2018", "09", "08", "2018-09-08 14:15:52", "31")
	assert.Equal(t, wantAddr, addr)
	requireLatest(t, e, "u1", "good", want)
}

func TestBatch_EmptyCategoryWritesZero(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	_, err := e.Batch(context.Background(), "u1", "good")
	require.NoError(t, err)

	requireLatest(t, e, "u1", "good", 0)
}

func TestBatch_RejectsReservedCategory(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	_, err := e.Batch(context.Background(), "u1", store.SummaryKey)

	assert.ErrorIs(t, err, store.ErrReservedCategory)
}

// Walks the whole life of a category: base import, batch, live records, full
// and incremental refresh.
func TestEndToEnd_BatchAndUpdate(t *testing.T) {
	e, st, clock := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := st.Append(ctx, "u1", "good", shard.Epoch, 100)
	require.NoError(t, err)

	_, ok, err := e.LatestValue(ctx, "u1", "good")
	require.NoError(t, err)
	assert.False(t, ok, "nothing batched yet")

	_, err = e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 100)

	batchedAt, ok, err := e.LatestTime(ctx, "u1", "good")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t0, batchedAt)

	_, err = st.Append(ctx, "u1", "good", clock.Advance(51*time.Second), 1)
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 100)

	clock.Advance(21 * time.Second)
	_, err = e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 101)

	_, err = st.Append(ctx, "u1", "good", clock.Advance(16*time.Second), 3)
	require.NoError(t, err)

	clock.Advance(13 * time.Second)
	addr, err := e.UpdateBatch(ctx, "u1", "good")
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 104)
	assert.Equal(t, filepath.Join(st.Root(), "u1", "good", store.SummaryKey,
		"2018", "09", "08", "2018-09-08 14:17:33", "104"), addr)
}

func TestUpdateBatch_RequiresPriorCheckpoint(t *testing.T) {
	e, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := st.Append(ctx, "u1", "good", t0, 1)
	require.NoError(t, err)

	_, err = e.UpdateBatch(ctx, "u1", "good")

	assert.ErrorIs(t, err, ErrNoCheckpoint)
	_, ok, err := e.LatestValue(ctx, "u1", "good")
	require.NoError(t, err)
	assert.False(t, ok, "failed update must not write a checkpoint")
}

func TestUpdateBatch_IdempotentWithoutNewRecords(t *testing.T) {
	for _, b := range []Boundary{BoundaryExclusive, BoundaryInclusive} {
		t.Run(b.String(), func(t *testing.T) {
			e, st, clock := newTestEngine(t, nil, WithBoundary(b))
			ctx := context.Background()

			_, err := st.Append(ctx, "u1", "good", t0.Add(-time.Minute), 7)
			require.NoError(t, err)
			_, err = e.Batch(ctx, "u1", "good")
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				clock.Advance(time.Second)
				_, err = e.UpdateBatch(ctx, "u1", "good")
				require.NoError(t, err)
				requireLatest(t, e, "u1", "good", 7)
			}
		})
	}
}

// A record in the same second as the checkpoint that counted it. The
// inclusive policy counts it once more, on the first update only: later
// updates start from a checkpoint in a later second.
func TestUpdateBatch_SameSecondRecord(t *testing.T) {
	tests := []struct {
		boundary Boundary
		want     []int64
	}{
		{BoundaryExclusive, []int64{1, 1, 1}},
		{BoundaryInclusive, []int64{2, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.boundary.String(), func(t *testing.T) {
			e, st, clock := newTestEngine(t, nil, WithBoundary(tt.boundary))
			ctx := context.Background()

			_, err := st.Append(ctx, "u1", "good", clock.Now(), 1)
			require.NoError(t, err)
			_, err = e.Batch(ctx, "u1", "good")
			require.NoError(t, err)
			requireLatest(t, e, "u1", "good", 1)

			for _, want := range tt.want {
				clock.Advance(time.Second)
				_, err = e.UpdateBatch(ctx, "u1", "good")
				require.NoError(t, err)
				requireLatest(t, e, "u1", "good", want)
			}
		})
	}
}

// Under the exclusive policy a record landing after the checkpoint within
// the same second is only recovered by a full Batch.
func TestUpdateBatch_ExclusiveMissesLateSameSecondRecord(t *testing.T) {
	e, st, clock := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	_, err = st.Append(ctx, "u1", "good", clock.Now(), 5)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = e.UpdateBatch(ctx, "u1", "good")
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 0)

	clock.Advance(time.Second)
	_, err = e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	requireLatest(t, e, "u1", "good", 5)
}

func TestUpdateBatch_AcrossMonthBoundary(t *testing.T) {
	lastOfMonth := time.Date(2018, time.September, 30, 23, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2018, time.October, 1, 9, 0, 0, 0, time.UTC)

	run := func(t *testing.T, mode store.RangeMode) int64 {
		e, st, clock := newTestEngine(t, []store.Option{store.WithRangeMode(mode)})
		ctx := context.Background()
		clock.Set(lastOfMonth)

		_, err := st.Append(ctx, "u1", "good", lastOfMonth.Add(-time.Hour), 10)
		require.NoError(t, err)
		_, err = e.Batch(ctx, "u1", "good")
		require.NoError(t, err)

		_, err = st.Append(ctx, "u1", "good", nextMonth, 2)
		require.NoError(t, err)
		clock.Set(nextMonth.Add(time.Minute))
		_, err = e.UpdateBatch(ctx, "u1", "good")
		require.NoError(t, err)

		v, ok, err := e.LatestValue(ctx, "u1", "good")
		require.NoError(t, err)
		require.True(t, ok)
		return v
	}

	t.Run("independent", func(t *testing.T) {
		assert.Equal(t, int64(10), run(t, store.RangeIndependent), "day 01 fails day>=30")
	})
	t.Run("hierarchical", func(t *testing.T) {
		assert.Equal(t, int64(12), run(t, store.RangeHierarchical))
	})
}

func TestWrite_SameSecondSameTotalIsIdempotent(t *testing.T) {
	e, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := st.Append(ctx, "u1", "good", t0.Add(-time.Hour), 2)
	require.NoError(t, err)

	first, err := e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	second, err := e.Batch(ctx, "u1", "good")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	requireLatest(t, e, "u1", "good", 2)
}

func TestWrite_SameSecondDifferentTotalConflicts(t *testing.T) {
	e, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Batch(ctx, "u1", "good")
	require.NoError(t, err)
	_, err = st.Append(ctx, "u1", "good", t0.Add(-time.Hour), 2)
	require.NoError(t, err)

	_, err = e.Batch(ctx, "u1", "good")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckpointConflict)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "u1/good")
	requireLatest(t, e, "u1", "good", 0)
}

func TestBoundary_StringAndParse(t *testing.T) {
	for _, b := range []Boundary{BoundaryExclusive, BoundaryInclusive} {
		got, err := ParseBoundary(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseBoundary("both")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	assert.Equal(t, "Boundary(7)", Boundary(7).String())
}

func TestNew_Defaults(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	assert.Equal(t, BoundaryExclusive, e.Boundary())

	bare := New(nil)
	assert.IsType(t, SystemClock{}, bare.clock)
	assert.IsType(t, UUIDv7Generator{}, bare.ids)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}

	a, b := g.Generate(), g.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestUpdateBatch_OverflowIsReported(t *testing.T) {
	e, st, clock := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := st.AppendCheckpoint(ctx, "u1", "good", t0, math.MaxInt64)
	require.NoError(t, err)
	_, err = st.Append(ctx, "u1", "good", clock.Advance(time.Second), 1)
	require.NoError(t, err)
	clock.Advance(time.Second)

	_, err = e.UpdateBatch(ctx, "u1", "good")

	require.ErrorIs(t, err, store.ErrOverflow)
	assert.NotErrorIs(t, err, store.ErrNegativeValue)
	requireLatest(t, e, "u1", "good", math.MaxInt64)
}
