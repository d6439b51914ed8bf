// Package metrics exposes Prometheus collectors for the counter store.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics handle without branching at every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "botrank"

// Append kinds.
const (
	KindRecord     = "record"
	KindCheckpoint = "checkpoint"
)

// Checkpoint modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Metrics holds the store's collectors.
type Metrics struct {
	appends     *prometheus.CounterVec
	scans       *prometheus.CounterVec
	scanLeaves  prometheus.Counter
	checkpoints *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// Passing nil for reg creates unregistered collectors (useful in tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appends_total",
			Help:      "Leaf entries written, by kind (record or checkpoint).",
		}, []string{"kind"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Range-filtered counts performed, by direction.",
		}, []string{"direction"}),
		scanLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_leaves_total",
			Help:      "Leaf directories summed by range scans.",
		}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoints written, by mode (full or incremental).",
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.appends, m.scans, m.scanLeaves, m.checkpoints)
	}
	return m
}

// Append records one leaf entry write.
func (m *Metrics) Append(kind string) {
	if m == nil {
		return
	}
	m.appends.WithLabelValues(kind).Inc()
}

// Scan records one range scan that summed the given number of leaves.
func (m *Metrics) Scan(direction string, leaves int) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(direction).Inc()
	m.scanLeaves.Add(float64(leaves))
}

// Checkpoint records one checkpoint write.
func (m *Metrics) Checkpoint(mode string) {
	if m == nil {
		return
	}
	m.checkpoints.WithLabelValues(mode).Inc()
}
