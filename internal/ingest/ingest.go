// Package ingest feeds externally extracted counts into the store.
//
// It implements the boundary contracts of the two import collaborators:
// tabular imports supply (entity, value) pairs for one fixed category, which
// are written at shard.Epoch so that they predate every live record; log
// ingestion supplies (entity, category, value, time) tuples, of which
// incomplete ones are skipped. File parsing and pattern matching happen
// upstream and are not part of this package.
//
// Unless case-sensitive mode is enabled, identifiers are trimmed,
// NFC-normalised and lower-cased before they reach the store, so "AddedColor"
// and "addedcolor" accumulate under one entity.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
)

// Appender is the write side of the store.
type Appender interface {
	Append(ctx context.Context, entity, category string, ts time.Time, value int64) (string, error)
}

// Count is one row of a tabular import.
type Count struct {
	Entity string
	Value  int64
}

// Tuple is one record extracted from a log line.
// A zero Value or Time, or an empty Entity or Category, marks the tuple as
// incomplete.
type Tuple struct {
	Entity   string
	Category string
	Value    int64
	Time     time.Time
}

// Report summarises an ingest call.
type Report struct {
	// Appended is the number of records written.
	Appended int
	// Skipped is the number of incomplete inputs.
	Skipped int
	// Rejected is the number of complete inputs the store refused
	// (invalid names, reserved category, negative value).
	Rejected int
	// Addresses lists the entries written, in input order.
	Addresses []string
}

// Ingester writes normalised records through an Appender.
type Ingester struct {
	app           Appender
	caseSensitive bool
	logger        *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithCaseSensitive disables lower-casing of identifiers.
func WithCaseSensitive(on bool) Option {
	return func(in *Ingester) { in.caseSensitive = on }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an Ingester writing to app.
func New(app Appender, opts ...Option) *Ingester {
	in := &Ingester{app: app, logger: slog.Default()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Normalize returns the identifier as it will be stored.
func (in *Ingester) Normalize(id string) string {
	id = norm.NFC.String(strings.TrimSpace(id))
	if in.caseSensitive {
		return id
	}
	// Casers keep state, so one is made per call.
	return cases.Lower(language.Und).String(id)
}

// ImportCounts appends each count under category at shard.Epoch.
// Entities are normalised; the category is used as given.
func (in *Ingester) ImportCounts(ctx context.Context, category string, counts []Count) (Report, error) {
	var rep Report
	for i, c := range counts {
		entity := in.Normalize(c.Entity)
		if entity == "" {
			rep.Skipped++
			continue
		}
		ok, err := in.append(ctx, &rep, entity, category, shard.Epoch, c.Value)
		if err != nil {
			return rep, fmt.Errorf("import counts: row %d: %w", i, err)
		}
		if !ok {
			in.logger.Warn("import row rejected", "row", i, "entity", entity, "category", category)
		}
	}

	in.logger.Info("counts imported",
		"category", category,
		"appended", rep.Appended,
		"skipped", rep.Skipped,
		"rejected", rep.Rejected,
	)
	return rep, nil
}

// Ingest appends every complete tuple and skips the rest.
func (in *Ingester) Ingest(ctx context.Context, tuples []Tuple) (Report, error) {
	var rep Report
	for i, tu := range tuples {
		entity := in.Normalize(tu.Entity)
		category := in.Normalize(tu.Category)
		if entity == "" || category == "" || tu.Value == 0 || tu.Time.IsZero() {
			rep.Skipped++
			continue
		}
		ok, err := in.append(ctx, &rep, entity, category, tu.Time, tu.Value)
		if err != nil {
			return rep, fmt.Errorf("ingest: tuple %d: %w", i, err)
		}
		if !ok {
			in.logger.Warn("tuple rejected", "tuple", i, "entity", entity, "category", category)
		}
	}

	in.logger.Info("tuples ingested",
		"appended", rep.Appended,
		"skipped", rep.Skipped,
		"rejected", rep.Rejected,
	)
	return rep, nil
}

// append writes one record. Argument errors from the store are counted as
// rejections; anything else is returned.
func (in *Ingester) append(ctx context.Context, rep *Report, entity, category string, ts time.Time, value int64) (bool, error) {
	addr, err := in.app.Append(ctx, entity, category, ts, value)
	if errors.Is(err, store.ErrInvalidArgument) {
		rep.Rejected++
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rep.Appended++
	rep.Addresses = append(rep.Addresses, addr)
	return true, nil
}
