package bplus

import (
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"testing"
)

func TestCapacitiesFitPage(t *testing.T) {
	if got := nodeHeaderSize + MaxLeafCapacity*(keySize+ridSize); got > page.PageSize {
		t.Fatalf("leaf of capacity %d needs %d bytes", MaxLeafCapacity, got)
	}
	if got := nodeHeaderSize + MaxNodeCapacity*keySize + (MaxNodeCapacity+1)*childSize; got > page.PageSize {
		t.Fatalf("internal node of capacity %d needs %d bytes", MaxNodeCapacity, got)
	}
	if MaxLeafCapacity != 407 || MaxNodeCapacity != 508 {
		t.Fatalf("capacities = %d/%d, want 407/508", MaxLeafCapacity, MaxNodeCapacity)
	}
}

func TestLeafInsertKeepsOrderAndDuplicates(t *testing.T) {
	pg := page.New(page.GlobalID(1, 3), 1, types.PageTypeBPlusNode)
	n := initLeaf(pg, 8)

	n.leafInsert(30, types.RecordID{PageNumber: 1})
	n.leafInsert(10, types.RecordID{PageNumber: 2})
	n.leafInsert(30, types.RecordID{PageNumber: 3})
	n.leafInsert(20, types.RecordID{PageNumber: 4})

	if !equalKeys(n.keys(), []int32{10, 20, 30, 30}) {
		t.Fatalf("keys = %v", n.keys())
	}
	if n.rid(2).PageNumber != 1 || n.rid(3).PageNumber != 3 {
		t.Fatalf("duplicates out of insertion order: %s %s", n.rid(2), n.rid(3))
	}
	if n.freeSlots() != 4 || n.localPage() != 3 || !n.isLeaf() {
		t.Fatalf("header free=%d page=%d leaf=%v", n.freeSlots(), n.localPage(), n.isLeaf())
	}
}

func TestLeafInsertFullPanics(t *testing.T) {
	pg := page.New(page.GlobalID(1, 1), 1, types.PageTypeBPlusNode)
	n := initLeaf(pg, 2)
	n.leafInsert(1, types.RecordID{})
	n.leafInsert(2, types.RecordID{})

	defer func() {
		if recover() == nil {
			t.Fatalf("insert into full leaf did not panic")
		}
	}()
	n.leafInsert(3, types.RecordID{})
}

func TestInternalInsert(t *testing.T) {
	pg := page.New(page.GlobalID(1, 2), 1, types.PageTypeBPlusNode)
	n := initInternal(pg, 4, 1)
	n.setKey(0, 50)
	n.setChild(0, 10)
	n.setChild(1, 11)
	n.setFreeSlots(3)

	n.internalInsert(1, 70, 12)
	n.internalInsert(0, 20, 13)

	if !equalKeys(n.keys(), []int32{20, 50, 70}) {
		t.Fatalf("keys = %v", n.keys())
	}
	want := []uint32{10, 13, 11, 12}
	for i, c := range n.children() {
		if c != want[i] {
			t.Fatalf("children = %v, want %v", n.children(), want)
		}
	}
	if n.childIndex(11) != 2 || n.childIndex(99) != -1 {
		t.Fatalf("childIndex wrong")
	}
	if n.level() != 1 || n.isLeaf() {
		t.Fatalf("level=%d leaf=%v", n.level(), n.isLeaf())
	}
}

func TestRouting(t *testing.T) {
	pg := page.New(page.GlobalID(1, 2), 1, types.PageTypeBPlusNode)
	n := initInternal(pg, 4, 0)
	n.setKey(0, 30)
	n.setKey(1, 60)
	n.setFreeSlots(2)

	cases := []struct {
		key        int32
		right      int
		lowerBound int
	}{
		{10, 0, 0},
		{30, 1, 0},
		{45, 1, 1},
		{60, 2, 1},
		{99, 2, 2},
	}
	for _, c := range cases {
		if got := routeRight(n, c.key); got != c.right {
			t.Fatalf("routeRight(%d) = %d, want %d", c.key, got, c.right)
		}
		if got := routeLow(n, c.key); got != c.lowerBound {
			t.Fatalf("routeLow(%d) = %d, want %d", c.key, got, c.lowerBound)
		}
	}
}
