// Package metrics exports the outcome of a run as Prometheus gauges.
//
// cachegc is a batch tool, so nothing is scraped. The gauges live in a
// private registry that is written once per run in the text exposition
// format, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cachegc"

// RunMetrics holds the gauges describing one run.
type RunMetrics struct {
	reg *prometheus.Registry

	// ObjectsTotal is the size of the loaded universe.
	ObjectsTotal prometheus.Gauge

	// ObjectsDeletable is the number of objects outside every kept closure.
	ObjectsDeletable prometheus.Gauge

	// OriginsTotal is the number of distinct archive origins.
	OriginsTotal prometheus.Gauge

	// OriginsDeletable is the number of origins no kept object uses.
	OriginsDeletable prometheus.Gauge

	// ReclaimableBytes is the total size of the deletable origins.
	ReclaimableBytes prometheus.Gauge

	// Roots is the number of objects inside the retention window.
	Roots prometheus.Gauge

	// DanglingReferences counts references to objects outside the universe.
	DanglingReferences prometheus.Gauge

	// CyclicGroups counts reference cycles between two or more objects.
	CyclicGroups prometheus.Gauge

	// ClosureDuration is the wall time spent computing closures.
	ClosureDuration prometheus.Gauge

	// LastRun is the completion time of the run.
	LastRun prometheus.Gauge
}

// New creates run metrics in a fresh registry.
func New() *RunMetrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates run metrics registered with reg.
func NewWithRegistry(reg *prometheus.Registry) *RunMetrics {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	return &RunMetrics{
		reg:                reg,
		ObjectsTotal:       gauge("objects_total", "Number of store objects loaded."),
		ObjectsDeletable:   gauge("objects_deletable", "Number of store objects outside every retained closure."),
		OriginsTotal:       gauge("origins_total", "Number of distinct archive origins."),
		OriginsDeletable:   gauge("origins_deletable", "Number of archive origins used by no retained object."),
		ReclaimableBytes:   gauge("reclaimable_bytes", "Total size of deletable archive origins in bytes."),
		Roots:              gauge("roots", "Number of store objects inside the retention window."),
		DanglingReferences: gauge("dangling_references", "Number of references to objects outside the loaded store."),
		CyclicGroups:       gauge("cyclic_groups", "Number of reference cycles spanning two or more objects."),
		ClosureDuration:    gauge("closure_duration_seconds", "Wall time spent computing closures."),
		LastRun:            gauge("last_run_timestamp_seconds", "Unix time the last run completed."),
	}
}

// Snapshot is the data a run reports.
type Snapshot struct {
	Objects            int
	DeletableObjects   int
	Origins            int
	DeletableOrigins   int
	ReclaimableBytes   int64
	Roots              int
	DanglingReferences int
	CyclicGroups       int
	ClosureDuration    time.Duration
	Finished           time.Time
}

// Observe sets every gauge from s.
func (m *RunMetrics) Observe(s Snapshot) {
	m.ObjectsTotal.Set(float64(s.Objects))
	m.ObjectsDeletable.Set(float64(s.DeletableObjects))
	m.OriginsTotal.Set(float64(s.Origins))
	m.OriginsDeletable.Set(float64(s.DeletableOrigins))
	m.ReclaimableBytes.Set(float64(s.ReclaimableBytes))
	m.Roots.Set(float64(s.Roots))
	m.DanglingReferences.Set(float64(s.DanglingReferences))
	m.CyclicGroups.Set(float64(s.CyclicGroups))
	m.ClosureDuration.Set(s.ClosureDuration.Seconds())
	m.LastRun.Set(float64(s.Finished.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
