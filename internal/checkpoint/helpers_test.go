package checkpoint

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/botrank/internal/store"
	"github.com/roach88/botrank/internal/testutil"
)

var t0 = time.Date(2018, time.September, 8, 14, 15, 52, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an engine over a fresh store with a clock at t0.
func newTestEngine(t *testing.T, storeOpts []store.Option, opts ...Option) (*Engine, *store.Store, *testutil.DeterministicClock) {
	t.Helper()
	storeOpts = append([]store.Option{store.WithLogger(discardLogger())}, storeOpts...)
	st, err := store.Open(filepath.Join(t.TempDir(), "botrank"), storeOpts...)
	require.NoError(t, err)

	clock := testutil.NewDeterministicClock(t0)
	opts = append([]Option{
		WithClock(clock),
		WithLogger(discardLogger()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("sweep")),
	}, opts...)
	return New(st, opts...), st, clock
}
