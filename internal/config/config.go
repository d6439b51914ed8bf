// Package config loads the botrank configuration file.
//
// The file is YAML. Unknown keys are rejected, missing keys take the values
// of Default, and the merged result is validated against an embedded CUE
// schema before any component sees it.
//
//	root: /var/lib/botrank
//	checkpoint:
//	  boundary: exclusive
//	ranges:
//	  mode: independent
//	score:
//	  z: 1.96
//	  positive: good
//	  negative: bad
//	ingest:
//	  case_sensitive: false
//	log:
//	  level: info
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/botrank/internal/checkpoint"
	"github.com/roach88/botrank/internal/ingest"
	"github.com/roach88/botrank/internal/metrics"
	"github.com/roach88/botrank/internal/ranking"
	"github.com/roach88/botrank/internal/score"
	"github.com/roach88/botrank/internal/store"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid is returned when a configuration fails schema validation.
var ErrInvalid = errors.New("invalid config")

// Config is the decoded configuration file.
type Config struct {
	Root       string           `yaml:"root" json:"root"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`
	Ranges     RangesConfig     `yaml:"ranges" json:"ranges"`
	Score      ScoreConfig      `yaml:"score" json:"score"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// CheckpointConfig selects the incremental boundary policy.
type CheckpointConfig struct {
	Boundary string `yaml:"boundary" json:"boundary"`
}

// RangesConfig selects the range scan mode.
type RangesConfig struct {
	Mode string `yaml:"mode" json:"mode"`
}

// ScoreConfig names the scored categories and the confidence quantile.
type ScoreConfig struct {
	Z        float64 `yaml:"z" json:"z"`
	Positive string  `yaml:"positive" json:"positive"`
	Negative string  `yaml:"negative" json:"negative"`
}

// IngestConfig controls identifier normalisation.
type IngestConfig struct {
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ValidationError reports the first schema violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalid, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalid, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Default returns the configuration used for keys the file omits.
// Root has no default.
func Default() *Config {
	return &Config{
		Checkpoint: CheckpointConfig{Boundary: checkpoint.BoundaryExclusive.String()},
		Ranges:     RangesConfig{Mode: store.RangeIndependent.String()},
		Score: ScoreConfig{
			Z:        score.DefaultZ,
			Positive: "good",
			Negative: "bad",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}

// StoreOptions returns the store options the configuration selects.
func (c *Config) StoreOptions(logger *slog.Logger, m *metrics.Metrics) ([]store.Option, error) {
	mode, err := store.ParseRangeMode(c.Ranges.Mode)
	if err != nil {
		return nil, err
	}
	return []store.Option{
		store.WithLogger(logger),
		store.WithMetrics(m),
		store.WithRangeMode(mode),
	}, nil
}

// EngineOptions returns the checkpoint engine options the configuration
// selects.
func (c *Config) EngineOptions(logger *slog.Logger, m *metrics.Metrics) ([]checkpoint.Option, error) {
	boundary, err := checkpoint.ParseBoundary(c.Checkpoint.Boundary)
	if err != nil {
		return nil, err
	}
	return []checkpoint.Option{
		checkpoint.WithBoundary(boundary),
		checkpoint.WithLogger(logger),
		checkpoint.WithMetrics(m),
	}, nil
}

// IngestOptions returns the ingester options the configuration selects.
func (c *Config) IngestOptions(logger *slog.Logger) []ingest.Option {
	return []ingest.Option{
		ingest.WithCaseSensitive(c.Ingest.CaseSensitive),
		ingest.WithLogger(logger),
	}
}

// RankingOptions returns the scored categories and quantile.
func (c *Config) RankingOptions() ranking.Options {
	opts := ranking.DefaultOptions()
	opts.Positive = c.Score.Positive
	opts.Negative = c.Score.Negative
	opts.Z = c.Score.Z
	return opts
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
