package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/botrank/internal/metrics"
)

// SummaryKey is the reserved child of a category that holds its checkpoints.
const SummaryKey = "summary"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// RangeMode selects how CountFiltered applies year/month/day bounds.
type RangeMode int

const (
	// RangeIndependent applies each level's bound on its own. This is the
	// historical behavior and the default.
	RangeIndependent RangeMode = iota

	// RangeHierarchical stops applying deeper bounds below a directory that
	// is strictly inside the range.
	RangeHierarchical
)

// String returns the config spelling of the mode.
func (m RangeMode) String() string {
	switch m {
	case RangeIndependent:
		return "independent"
	case RangeHierarchical:
		return "hierarchical"
	default:
		return fmt.Sprintf("RangeMode(%d)", int(m))
	}
}

// ParseRangeMode is the inverse of RangeMode.String.
func ParseRangeMode(s string) (RangeMode, error) {
	switch s {
	case "independent":
		return RangeIndependent, nil
	case "hierarchical":
		return RangeHierarchical, nil
	}
	return 0, fmt.Errorf("%w: unknown range mode %q", ErrInvalidArgument, s)
}

// Store is a handle on one store root directory.
// It holds only configuration; all state is on disk.
type Store struct {
	root      string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	rangeMode RangeMode
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRangeMode sets the range scan mode. Defaults to RangeIndependent.
func WithRangeMode(m RangeMode) Option {
	return func(s *Store) { s.rangeMode = m }
}

// Open returns a Store rooted at root, creating the directory if needed.
// Opening the same root multiple times is safe.
func Open(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("open store: %w: empty root", ErrInvalidArgument)
	}
	root = filepath.Clean(root)

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open store: %w: %s is not a directory", ErrInvalidArgument, root)
	}

	s := &Store{
		root:   root,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// RangeMode returns the configured range scan mode.
func (s *Store) RangeMode() RangeMode {
	return s.rangeMode
}

// categoryDir is the directory holding records for (entity, category).
func (s *Store) categoryDir(entity, category string) string {
	return filepath.Join(s.root, entity, category)
}

// summaryDir is the directory holding checkpoints for (entity, category).
func (s *Store) summaryDir(entity, category string) string {
	return filepath.Join(s.root, entity, category, SummaryKey)
}

// validateName checks that name is usable as a single path element.
func validateName(kind, name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %s %q", ErrInvalidName, kind, name)
	}
	return nil
}

// validateAddress checks an (entity, category) pair.
func validateAddress(entity, category string) error {
	if err := validateName("entity", entity); err != nil {
		return err
	}
	if err := validateName("category", category); err != nil {
		return err
	}
	if category == SummaryKey {
		return fmt.Errorf("%w: %q", ErrReservedCategory, category)
	}
	return nil
}
