package bplus

import (
	"IdxDB/types"
	"fmt"
)

// splitLeaf splits the full leaf held by g and places the pending entry.
//
// The left leaf keeps the first L/2 entries and the new right leaf takes the
// rest, so for odd L the extra entry goes right. The pending key goes left
// only if it is strictly less than the first key of the right leaf. The right
// leaf's first key is then pushed to the parent.
func (t *BPlusTree) splitLeaf(g *pageGuard, key int32, rid types.RecordID) error {
	rg, err := t.allocate()
	if err != nil {
		_ = g.release()
		return fmt.Errorf("splitLeaf: failed to allocate right sibling: %w", err)
	}

	left := leafNode(g.pg, t.leafCap)
	right := initLeaf(rg.pg, t.leafCap)

	keep := t.leafCap / 2
	moved := t.leafCap - keep
	for i := 0; i < moved; i++ {
		right.setEntry(i, left.key(keep+i), left.rid(keep+i))
	}
	left.setFreeSlots(t.leafCap - keep)
	right.setFreeSlots(t.leafCap - moved)

	right.setRightSib(left.rightSib())
	left.setRightSib(rg.local())
	right.setParent(left.parent())

	if key < right.key(0) {
		left.leafInsert(key, rid)
	} else {
		right.leafInsert(key, rid)
	}

	sep := right.key(0)
	leftPage, rightPage, parent := g.local(), rg.local(), left.parent()
	isRoot := leftPage == t.meta.root

	g.markDirty()
	if err := g.release(); err != nil {
		_ = rg.release()
		return err
	}
	if err := rg.release(); err != nil {
		return err
	}

	t.metrics.RecordSplit("leaf")
	zl := t.log.GetZerolog()
	zl.Debug().
		Uint32("left", leftPage).
		Uint32("right", rightPage).
		Int32("separator", sep).
		Msg("leaf split")

	if isRoot {
		return t.createNewRoot(leftPage, sep, rightPage, 0)
	}
	return t.insertIntoParent(parent, leftPage, sep, rightPage)
}
