package heapfile

import (
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

func newTestManager(t *testing.T, dir string, poolPages int) (*HeapFileManager, *bufferpool.BufferPool, *diskmanager.DiskManager) {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(0)
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	bp := bufferpool.NewBufferPool(poolPages, dm)
	hfm, err := NewHeapFileManager(dir, dm, bp)
	if err != nil {
		t.Fatalf("NewHeapFileManager: %v", err)
	}
	return hfm, bp, dm
}

func TestHeapPageInsertGet(t *testing.T) {
	pg := page.New(page.GlobalID(1, 0), 1, types.PageTypeHeapData)
	h := heapPage{pg}
	h.format(0)

	before := h.freeSpace()
	slot, err := h.add([]byte("abc"))
	if err != nil || slot != 0 {
		t.Fatalf("add = %d, %v", slot, err)
	}
	if got := h.freeSpace(); got != before-3-SlotSize {
		t.Fatalf("freeSpace = %d, want %d", got, before-3-SlotSize)
	}
	slot, _ = h.add([]byte("defg"))
	if slot != 1 {
		t.Fatalf("second slot = %d", slot)
	}

	rec, err := h.record(1)
	if err != nil || string(rec) != "defg" {
		t.Fatalf("record = %q, %v", rec, err)
	}
	if _, err := h.record(2); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestHeapPageFillsUp(t *testing.T) {
	pg := page.New(page.GlobalID(1, 0), 1, types.PageTypeHeapData)
	h := heapPage{pg}
	h.format(0)
	rec := make([]byte, 100)
	n := 0
	for {
		if _, err := h.add(rec); err != nil {
			break
		}
		n++
	}
	want := (page.PageSize - HeapHeaderSize) / (100 + SlotSize)
	if n != want {
		t.Fatalf("fit %d records, want %d", n, want)
	}
	if h.pageNo() != 0 || h.slotCount() != uint16(n) {
		t.Fatalf("header pageNo=%d slots=%d", h.pageNo(), h.slotCount())
	}
}

func tuple(id int32, name string) []byte {
	buf := make([]byte, 4+len(name))
	binary.LittleEndian.PutUint32(buf, uint32(id))
	copy(buf[4:], name)
	return buf
}

func TestInsertScanAcrossPages(t *testing.T) {
	hfm, bp, dm := newTestManager(t, t.TempDir(), 8)
	defer dm.CloseAll()

	hf, err := hfm.CreateHeapFile("emp", 1)
	if err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}

	const n = 500 // several pages at ~ 60 bytes per record
	rids := make([]types.RecordID, n)
	for i := 0; i < n; i++ {
		rid, err := hf.InsertRecord(tuple(int32(i), fmt.Sprintf("employee-%040d", i)))
		if err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
		rids[i] = rid
	}
	if pages, _ := hf.NumPages(); pages < 2 {
		t.Fatalf("expected several pages, got %d", pages)
	}

	got, err := hf.GetRecord(rids[321])
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if id := int32(binary.LittleEndian.Uint32(got)); id != 321 {
		t.Fatalf("record id = %d", id)
	}

	scan, err := hf.NewFileScan()
	if err != nil {
		t.Fatalf("NewFileScan: %v", err)
	}
	i := 0
	for {
		rid, data, err := scan.Next()
		if errors.Is(err, types.ErrEndOfRelation) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rid != rids[i] {
			t.Fatalf("record %d: rid %v, want %v", i, rid, rids[i])
		}
		if !bytes.Equal(data, tuple(int32(i), fmt.Sprintf("employee-%040d", i))) {
			t.Fatalf("record %d: data mismatch", i)
		}
		i++
	}
	if i != n {
		t.Fatalf("scanned %d records, want %d", i, n)
	}
	// end of relation is sticky
	if _, _, err := scan.Next(); !errors.Is(err, types.ErrEndOfRelation) {
		t.Fatalf("Next after end = %v", err)
	}
	if ps := bp.PinStats(); ps.Outstanding() != 0 {
		t.Fatalf("pins leaked: %+v", ps)
	}
}

func TestScanCloseReleasesPage(t *testing.T) {
	hfm, bp, dm := newTestManager(t, t.TempDir(), 8)
	defer dm.CloseAll()

	hf, _ := hfm.CreateHeapFile("r", 3)
	for i := 0; i < 3; i++ {
		if _, err := hf.InsertRecord(tuple(int32(i), "x")); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}
	scan, _ := hf.NewFileScan()
	if _, _, err := scan.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if bp.GetStats().PinnedPages != 1 {
		t.Fatalf("expected the scan to hold one page")
	}
	if err := scan.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if bp.GetStats().PinnedPages != 0 {
		t.Fatalf("page still pinned after Close")
	}
}

func TestGetRecordUnpinsOnEveryPath(t *testing.T) {
	hfm, bp, dm := newTestManager(t, t.TempDir(), 8)
	defer dm.CloseAll()

	hf, _ := hfm.CreateHeapFile("r", 4)
	rid, err := hf.InsertRecord(tuple(1, "one"))
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if _, err := hf.GetRecord(rid); err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	bad := types.RecordID{PageNumber: rid.PageNumber, SlotIndex: rid.SlotIndex + 5}
	if data, err := hf.GetRecord(bad); err == nil || data != nil {
		t.Fatalf("GetRecord of an empty slot = %q, %v", data, err)
	}
	if out := bp.PinStats().Outstanding(); out != 0 {
		t.Fatalf("%d pins outstanding after GetRecord", out)
	}
}

func TestReopenHeapFile(t *testing.T) {
	dir := t.TempDir()

	hfm, _, dm := newTestManager(t, dir, 8)
	hf, err := hfm.CreateHeapFile("dept", 4)
	if err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	rid, _ := hf.InsertRecord(tuple(7, "sales"))
	if err := hfm.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	_ = dm.CloseAll()

	hfm2, _, dm2 := newTestManager(t, dir, 8)
	defer dm2.CloseAll()

	if _, err := hfm2.CreateHeapFile("dept", 4); !errors.Is(err, ErrRelationExists) {
		t.Fatalf("create over existing file: err = %v", err)
	}
	hf2, err := hfm2.OpenHeapFile("dept", 4)
	if err != nil {
		t.Fatalf("OpenHeapFile: %v", err)
	}
	got, err := hf2.GetRecord(rid)
	if err != nil || !bytes.Equal(got, tuple(7, "sales")) {
		t.Fatalf("GetRecord after reopen = %q, %v", got, err)
	}
	if _, err := hfm2.OpenHeapFile("missing", 9); !errors.Is(err, ErrRelationNotFound) {
		t.Fatalf("open missing: err = %v", err)
	}
}

func TestValidateRelationName(t *testing.T) {
	for _, bad := range []string{"", "a/b", "a.b", `a\b`} {
		if ValidateRelationName(bad) == nil {
			t.Errorf("ValidateRelationName(%q) accepted", bad)
		}
	}
	if err := ValidateRelationName("employees"); err != nil {
		t.Errorf("ValidateRelationName(employees) = %v", err)
	}
}
