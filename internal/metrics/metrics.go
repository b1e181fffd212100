// Package metrics provides Prometheus metrics for IdxDB
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for IdxDB
type Metrics struct {
	Registry *prometheus.Registry

	// Buffer pool metrics
	BufferPoolHits      prometheus.Counter
	BufferPoolMisses    prometheus.Counter
	BufferPoolEvictions prometheus.Counter
	BufferPoolFlushes   prometheus.Counter

	// Disk metrics
	DiskReads        prometheus.Counter
	DiskWrites       prometheus.Counter
	PageCacheHits    prometheus.Counter
	PageCacheMisses  prometheus.Counter
	DiskBytesWritten prometheus.Counter

	// Index metrics
	IndexInserts      prometheus.Counter
	IndexSplitsTotal  *prometheus.CounterVec
	IndexScansTotal   *prometheus.CounterVec
	IndexScanEntries  prometheus.Counter
	IndexOpenTotal    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	StartTime time.Time
}

// NewMetrics creates all collectors on a private registry so that several
// engines (and tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry:  reg,
		StartTime: time.Now(),
	}

	m.BufferPoolHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_bufferpool_hits_total",
		Help: "Page fetches served from the buffer pool",
	})
	m.BufferPoolMisses = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_bufferpool_misses_total",
		Help: "Page fetches that had to go to the disk manager",
	})
	m.BufferPoolEvictions = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_bufferpool_evictions_total",
		Help: "Pages evicted by the LRU policy",
	})
	m.BufferPoolFlushes = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_bufferpool_flushes_total",
		Help: "Dirty pages written back by the buffer pool",
	})

	m.DiskReads = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_disk_reads_total",
		Help: "Pages read from disk files",
	})
	m.DiskWrites = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_disk_writes_total",
		Help: "Pages written to disk files",
	})
	m.PageCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_page_cache_hits_total",
		Help: "Page reads served from the page image cache",
	})
	m.PageCacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_page_cache_misses_total",
		Help: "Page reads that missed the page image cache",
	})
	m.DiskBytesWritten = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_disk_bytes_written_total",
		Help: "Bytes written to disk files",
	})

	m.IndexInserts = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_index_inserts_total",
		Help: "Entries inserted into B+ tree indexes",
	})
	m.IndexSplitsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idxdb_index_splits_total",
			Help: "Node splits by kind (leaf, internal, root)",
		},
		[]string{"kind"},
	)
	m.IndexScansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idxdb_index_scans_total",
			Help: "Range scans by outcome",
		},
		[]string{"status"},
	)
	m.IndexScanEntries = factory.NewCounter(prometheus.CounterOpts{
		Name: "idxdb_index_scan_entries_total",
		Help: "Entries returned by range scans",
	})
	m.IndexOpenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idxdb_index_open_total",
			Help: "Index opens by mode (create, reopen)",
		},
		[]string{"mode"},
	)
	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idxdb_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"operation"},
	)

	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// RecordOperation observes the duration of a named operation.
func (m *Metrics) RecordOperation(operation string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSplit counts a split of the given kind.
func (m *Metrics) RecordSplit(kind string) {
	m.IndexSplitsTotal.WithLabelValues(kind).Inc()
}

// RecordScan counts a finished scan and the entries it produced.
func (m *Metrics) RecordScan(status string, entries int) {
	m.IndexScansTotal.WithLabelValues(status).Inc()
	m.IndexScanEntries.Add(float64(entries))
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics used when a component is not
// given its own set.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}
