package bplus

import (
	"IdxDB/internal/metrics"
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/types"
	"errors"
	"testing"
)

type testEnv struct {
	dir     string
	dm      *diskmanager.DiskManager
	bp      *bufferpool.BufferPool
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, poolPages int) *testEnv {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(1 << 20)
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	t.Cleanup(func() { _ = dm.CloseAll() })
	return &testEnv{
		dir:     t.TempDir(),
		dm:      dm,
		bp:      bufferpool.NewBufferPool(poolPages, dm),
		metrics: metrics.NewMetrics(),
	}
}

func (e *testEnv) request(rel string) IndexRequest {
	return IndexRequest{Dir: e.dir, FileID: 7, RelationName: rel, AttrByteOffset: 0, AttrType: types.INTEGER}
}

func (e *testEnv) open(t *testing.T, req IndexRequest, scanner RecordScanner, leafCap, nodeCap int) *BPlusTree {
	t.Helper()
	tree, err := Open(req, e.bp, e.dm, scanner, Options{LeafCapacity: leafCap, NodeCapacity: nodeCap, Metrics: e.metrics})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tree
}

// assertNoPins fails when any page is still pinned or pins and unpins differ.
func (e *testEnv) assertNoPins(t *testing.T) {
	t.Helper()
	if out := e.bp.PinStats().Outstanding(); out != 0 {
		t.Fatalf("pin balance: %d outstanding (%+v)", out, e.bp.PinStats())
	}
	if pinned := e.bp.GetStats().PinnedPages; pinned != 0 {
		t.Fatalf("%d pages still pinned", pinned)
	}
}

func rid(k int32) types.RecordID {
	return types.RecordID{PageNumber: uint32(k) + 1, SlotIndex: uint16(k)}
}

func insertAll(t *testing.T, tree *BPlusTree, keys ...int32) {
	t.Helper()
	for _, k := range keys {
		if err := tree.Insert(k, rid(k)); err != nil {
			t.Fatalf("Insert %d: %v", k, err)
		}
	}
}

// scanKeys runs a scan through ScanNextEntry and returns the keys it produced.
func scanKeys(t *testing.T, tree *BPlusTree, low int32, lowOp types.Operator, high int32, highOp types.Operator) []int32 {
	t.Helper()
	if err := tree.StartScan(low, lowOp, high, highOp); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	var keys []int32
	for {
		k, r, err := tree.ScanNextEntry()
		if errors.Is(err, ErrIndexScanCompleted) {
			break
		}
		if err != nil {
			t.Fatalf("ScanNextEntry: %v", err)
		}
		if r != rid(k) {
			t.Fatalf("key %d carries rid %s, want %s", k, r, rid(k))
		}
		keys = append(keys, k)
	}
	if err := tree.EndScan(); err != nil {
		t.Fatalf("EndScan: %v", err)
	}
	return keys
}

func seq(from, to int32) []int32 {
	var out []int32
	for k := from; k <= to; k++ {
		out = append(out, k)
	}
	return out
}

func equalKeys(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sliceScanner feeds bulk loads in tests.
type sliceScanner struct {
	recs [][]byte
	pos  int
}

func (s *sliceScanner) Next() (types.RecordID, []byte, error) {
	if s.pos >= len(s.recs) {
		return types.RecordID{}, nil, types.ErrEndOfRelation
	}
	s.pos++
	return rid(int32(s.pos - 1)), s.recs[s.pos-1], nil
}
