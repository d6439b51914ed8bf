package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/botrank/internal/metrics"
	"github.com/roach88/botrank/internal/shard"
)

func TestStore_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := createTestStore(t, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	_, err := s.Append(ctx, "u1", "good", at(2018, time.September, 8, 10, 0, 0), 1)
	require.NoError(t, err)
	_, err = s.Append(ctx, "u1", "good", at(2018, time.September, 8, 10, 0, 1), 2)
	require.NoError(t, err)
	_, err = s.AppendCheckpoint(ctx, "u1", "good", at(2018, time.September, 8, 10, 0, 2), 3)
	require.NoError(t, err)

	// Rejected writes and scans are not counted.
	_, err = s.Append(ctx, "u1", SummaryKey, at(2018, time.September, 8, 10, 0, 0), 1)
	require.Error(t, err)
	_, err = s.CountFiltered(ctx, "u1", "good", shard.Epoch, Direction(42))
	require.Error(t, err)

	total, err := s.CountFiltered(ctx, "u1", "good", shard.Epoch, AfterOrEqual)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	total, err = s.CountFiltered(ctx, "u1", "good", at(2018, time.September, 8, 10, 0, 1), Before)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	expected := `
# HELP botrank_appends_total Leaf entries written, by kind (record or checkpoint).
# TYPE botrank_appends_total counter
botrank_appends_total{kind="checkpoint"} 1
botrank_appends_total{kind="record"} 2
# HELP botrank_scans_total Range-filtered counts performed, by direction.
# TYPE botrank_scans_total counter
botrank_scans_total{direction="after_or_equal"} 1
botrank_scans_total{direction="before"} 1
# HELP botrank_scan_leaves_total Leaf directories summed by range scans.
# TYPE botrank_scan_leaves_total counter
botrank_scan_leaves_total 3
`
	require.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(expected),
		"botrank_appends_total",
		"botrank_scans_total",
		"botrank_scan_leaves_total",
	))
}
