package bplus

import "fmt"

// insertIntoParent records that left was split into (left, sep, right) under
// parent. A full parent splits in turn and the pushed-up key continues one
// level higher, until a node has room or the root itself splits.
func (t *BPlusTree) insertIntoParent(parent, left uint32, sep int32, right uint32) error {
	for {
		g, err := t.fetchNode(parent, false)
		if err != nil {
			return fmt.Errorf("insertIntoParent: %w", err)
		}
		n := internalNode(g.pg, t.nodeCap)

		idx := n.childIndex(left)
		if idx < 0 {
			_ = g.release()
			return fmt.Errorf("insertIntoParent: %w: page %d is not a child of %d", ErrCorruptIndex, left, parent)
		}

		if n.freeSlots() > 0 {
			n.internalInsert(idx, sep, right)
			g.markDirty()
			return g.release()
		}

		push, sibling, err := t.splitInternal(g, idx, sep, right)
		cur, grand, level := g.local(), n.parent(), n.level()
		if rerr := g.release(); err == nil {
			err = rerr
		}
		if err != nil {
			return err
		}

		if cur == t.meta.root {
			return t.createNewRoot(cur, push, sibling, level+1)
		}
		parent, left, sep, right = grand, cur, push, sibling
	}
}
