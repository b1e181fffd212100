package bplus

import (
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"encoding/binary"
	"fmt"
)

/*
Nodes are typed views over the bytes of a pinned page; nothing is copied
out of the frame. Capacities are fixed per tree and every array has its full
capacity reserved in the page, so the free-slot count, not a slice length,
says how many entries are in use.

Layout (little-endian):

	Header (24 bytes):
	  0   localPage  uint32
	  8   pageType   uint8   stamped by the disk manager
	  9   isLeaf     uint8   1=leaf, 0=internal
	  10  level      uint16  internal only, 0 = children are leaves
	  12  freeSlots  uint16
	  14  parent     uint32  local page, 0 = none
	  18  rightSib   uint32  leaf only, local page, 0 = none

	Leaf body:
	  keys  int32[L]
	  rids  L × [ page uint32 | slot uint16 ]

	Internal body:
	  keys      int32[N]
	  children  uint32[N+1]

Page 0 of every index file is the metadata page, so 0 is never a node and
doubles as the "no page" marker for parent and sibling links.
*/

const (
	offLocalPage = 0
	offIsLeaf    = 9
	offLevel     = 10
	offFreeSlots = 12
	offParent    = 14
	offRightSib  = 18

	nodeHeaderSize = 24
	keySize        = 4
	ridSize        = 6
	childSize      = 4

	noPage uint32 = 0

	// MaxLeafCapacity and MaxNodeCapacity are the largest capacities that fit one page.
	MaxLeafCapacity = (page.PageSize - nodeHeaderSize) / (keySize + ridSize)
	MaxNodeCapacity = (page.PageSize - nodeHeaderSize - childSize) / (keySize + childSize)
	MinCapacity     = 2
)

type node struct {
	data     []byte
	capacity int
}

func leafNode(pg *page.Page, leafCap int) node {
	return node{data: pg.Data, capacity: leafCap}
}

func internalNode(pg *page.Page, nodeCap int) node {
	return node{data: pg.Data, capacity: nodeCap}
}

func isLeafPage(pg *page.Page) bool {
	return pg.Data[offIsLeaf] == 1
}

// initLeaf formats pg as an empty leaf.
func initLeaf(pg *page.Page, leafCap int) node {
	clearPage(pg)
	n := leafNode(pg, leafCap)
	n.data[offIsLeaf] = 1
	n.setFreeSlots(leafCap)
	return n
}

// initInternal formats pg as an empty internal node at the given level.
func initInternal(pg *page.Page, nodeCap int, level uint16) node {
	clearPage(pg)
	n := internalNode(pg, nodeCap)
	n.data[offIsLeaf] = 0
	n.setLevel(level)
	n.setFreeSlots(nodeCap)
	return n
}

func clearPage(pg *page.Page) {
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	binary.LittleEndian.PutUint32(pg.Data[offLocalPage:], pg.Local())
	pg.Data[page.PageTypeOffset] = byte(types.PageTypeBPlusNode)
	pg.PageType = types.PageTypeBPlusNode
}

func (n node) localPage() uint32 {
	return binary.LittleEndian.Uint32(n.data[offLocalPage:])
}

func (n node) isLeaf() bool {
	return n.data[offIsLeaf] == 1
}

func (n node) level() uint16 {
	return binary.LittleEndian.Uint16(n.data[offLevel:])
}

func (n node) setLevel(l uint16) {
	binary.LittleEndian.PutUint16(n.data[offLevel:], l)
}

func (n node) freeSlots() int {
	return int(binary.LittleEndian.Uint16(n.data[offFreeSlots:]))
}

func (n node) setFreeSlots(free int) {
	if free < 0 || free > n.capacity {
		panic(fmt.Sprintf("bplus: free slots %d outside [0, %d]", free, n.capacity))
	}
	binary.LittleEndian.PutUint16(n.data[offFreeSlots:], uint16(free))
}

// count is the number of keys in use.
func (n node) count() int {
	return n.capacity - n.freeSlots()
}

func (n node) parent() uint32 {
	return binary.LittleEndian.Uint32(n.data[offParent:])
}

func (n node) setParent(p uint32) {
	binary.LittleEndian.PutUint32(n.data[offParent:], p)
}

func (n node) rightSib() uint32 {
	return binary.LittleEndian.Uint32(n.data[offRightSib:])
}

func (n node) setRightSib(s uint32) {
	binary.LittleEndian.PutUint32(n.data[offRightSib:], s)
}

func (n node) key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(n.data[nodeHeaderSize+i*keySize:]))
}

func (n node) setKey(i int, k int32) {
	binary.LittleEndian.PutUint32(n.data[nodeHeaderSize+i*keySize:], uint32(k))
}

// ─── leaf entries ───────────────────────────────────────────────────────────

func (n node) ridOffset(i int) int {
	return nodeHeaderSize + n.capacity*keySize + i*ridSize
}

func (n node) rid(i int) types.RecordID {
	off := n.ridOffset(i)
	return types.RecordID{
		PageNumber: binary.LittleEndian.Uint32(n.data[off:]),
		SlotIndex:  binary.LittleEndian.Uint16(n.data[off+4:]),
	}
}

func (n node) setRid(i int, rid types.RecordID) {
	off := n.ridOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:], rid.PageNumber)
	binary.LittleEndian.PutUint16(n.data[off+4:], rid.SlotIndex)
}

func (n node) setEntry(i int, k int32, rid types.RecordID) {
	n.setKey(i, k)
	n.setRid(i, rid)
}

// leafInsert appends the entry and sorts it into place. Equal keys keep their
// insertion order because the entry only moves past strictly greater keys.
func (n node) leafInsert(k int32, rid types.RecordID) {
	cnt := n.count()
	if cnt >= n.capacity {
		panic(fmt.Sprintf("bplus: insert into full leaf %d", n.localPage()))
	}
	i := cnt
	for i > 0 && n.key(i-1) > k {
		n.setEntry(i, n.key(i-1), n.rid(i-1))
		i--
	}
	n.setEntry(i, k, rid)
	n.setFreeSlots(n.freeSlots() - 1)
}

// ─── internal entries ───────────────────────────────────────────────────────

func (n node) childOffset(i int) int {
	return nodeHeaderSize + n.capacity*keySize + i*childSize
}

func (n node) child(i int) uint32 {
	return binary.LittleEndian.Uint32(n.data[n.childOffset(i):])
}

func (n node) setChild(i int, c uint32) {
	binary.LittleEndian.PutUint32(n.data[n.childOffset(i):], c)
}

// childIndex finds the position of a child page, or -1.
func (n node) childIndex(c uint32) int {
	for i := 0; i <= n.count(); i++ {
		if n.child(i) == c {
			return i
		}
	}
	return -1
}

// internalInsert places key at idx and its right child at idx+1.
func (n node) internalInsert(idx int, k int32, right uint32) {
	cnt := n.count()
	if cnt >= n.capacity {
		panic(fmt.Sprintf("bplus: insert into full internal node %d", n.localPage()))
	}
	for i := cnt; i > idx; i-- {
		n.setKey(i, n.key(i-1))
		n.setChild(i+1, n.child(i))
	}
	n.setKey(idx, k)
	n.setChild(idx+1, right)
	n.setFreeSlots(n.freeSlots() - 1)
}

// keys copies the keys in use.
func (n node) keys() []int32 {
	out := make([]int32, n.count())
	for i := range out {
		out[i] = n.key(i)
	}
	return out
}

// children copies the child links in use.
func (n node) children() []uint32 {
	out := make([]uint32, n.count()+1)
	for i := range out {
		out[i] = n.child(i)
	}
	return out
}
