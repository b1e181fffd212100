package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.BufferPoolHits.Inc()
	a.BufferPoolHits.Inc()

	if got := testutil.ToFloat64(a.BufferPoolHits); got != 2 {
		t.Fatalf("a hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.BufferPoolHits); got != 0 {
		t.Fatalf("b hits = %v, want 0", got)
	}
}

func TestRecordSplitAndScan(t *testing.T) {
	m := NewMetrics()
	m.RecordSplit("leaf")
	m.RecordSplit("leaf")
	m.RecordSplit("root")
	m.RecordScan("completed", 10)
	m.RecordOperation("insert", time.Microsecond)

	if got := testutil.ToFloat64(m.IndexSplitsTotal.WithLabelValues("leaf")); got != 2 {
		t.Errorf("leaf splits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IndexSplitsTotal.WithLabelValues("root")); got != 1 {
		t.Errorf("root splits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexScanEntries); got != 10 {
		t.Errorf("scan entries = %v, want 10", got)
	}
	if n := testutil.CollectAndCount(m.OperationDuration); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default returned different instances")
	}
}
