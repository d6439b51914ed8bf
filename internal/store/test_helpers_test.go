package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a store in a fresh temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := Open(filepath.Join(t.TempDir(), "botrank"), opts...)
	require.NoError(t, err)
	return s
}

// at builds a UTC timestamp.
func at(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

// mkdirUnder creates a directory below the store root.
func mkdirUnder(t *testing.T, s *Store, elems ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{s.Root()}, elems...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

// touchUnder creates an empty file below the store root.
func touchUnder(t *testing.T, s *Store, elems ...string) {
	t.Helper()
	path := filepath.Join(append([]string{s.Root()}, elems...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}
