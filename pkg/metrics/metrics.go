// Package metrics records txprofile run metrics with Prometheus.
//
// # Overview
//
// A run owns one Collector backed by a private registry, so repeated runs in
// one process never collide on registration. When a textfile path is
// configured the registry is written once at the end of the run in the
// Prometheus text exposition format, ready for node_exporter's textfile
// collector.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//	timer := metrics.NewTimer("load")
//	table, err := loader.Load(ctx)
//	collector.ObserveStage("load", timer.Stop())
//	collector.RecordRowsLoaded(table.NumRows())
//	err = collector.WriteTextfile("results/txprofile.prom")
//
// # Metric Types
//
// Counter: rows loaded, optimizer changes
// Gauge: per-column memory by phase, memory totals
// Histogram: stage durations
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name
const Namespace = "txprofile"

// Collector wraps the metrics of a single run
type Collector struct {
	registry       *prometheus.Registry
	rowsLoaded     prometheus.Counter
	columnMemory   *prometheus.GaugeVec
	totalMemory    *prometheus.GaugeVec
	stageDuration  *prometheus.HistogramVec
	columnsChanged *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		rowsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_loaded_total",
			Help:      "Number of data rows loaded from the source file",
		}),
		columnMemory: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "column_memory_bytes",
			Help:      "Deep memory usage per column",
		}, []string{"column", "phase"}),
		totalMemory: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "table_memory_bytes",
			Help:      "Deep memory usage of the whole table",
		}, []string{"phase"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4.4min
		}, []string{"stage"}),
		columnsChanged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "optimizer_changes_total",
			Help:      "Columns whose storage the optimizer changed",
		}, []string{"to"}),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRowsLoaded adds n loaded rows
func (c *Collector) RecordRowsLoaded(n int) {
	c.rowsLoaded.Add(float64(n))
}

// RecordColumnMemory sets the memory gauge of a column for a phase
// ("before" or "after" optimization)
func (c *Collector) RecordColumnMemory(phase, column string, bytes int64) {
	c.columnMemory.WithLabelValues(column, phase).Set(float64(bytes))
}

// RecordTableMemory sets the total memory gauge for a phase
func (c *Collector) RecordTableMemory(phase string, bytes int64) {
	c.totalMemory.WithLabelValues(phase).Set(float64(bytes))
}

// ObserveStage records the duration of a pipeline stage
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordChange counts an optimizer change to the given data type
func (c *Collector) RecordChange(to string) {
	c.columnsChanged.WithLabelValues(to).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer measures elapsed time for operations
type Timer struct {
	name  string
	start time.Time
}

// NewTimer creates a new timer
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Name returns the timed operation
func (t *Timer) Name() string {
	return t.name
}

// Stop stops the timer and returns the duration
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
