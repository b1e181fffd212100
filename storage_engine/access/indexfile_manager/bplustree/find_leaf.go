package bplus

import "sort"

// routeRight is the child a key descends into: the first separator strictly
// greater than key bounds it, so keys equal to a separator go right.
func routeRight(n node, key int32) int {
	return sort.Search(n.count(), func(i int) bool { return key < n.key(i) })
}

// routeLow is the leftmost child that can hold a key >= low. Equal keys may
// sit left of their separator when a run of duplicates was split, so equality
// goes left here.
func routeLow(n node, low int32) int {
	return sort.Search(n.count(), func(i int) bool { return low <= n.key(i) })
}

// findLeaf descends from an internal root to the leaf that owns key and
// returns it pinned. Every internal page is unpinned once its child is chosen.
// On the way down each visited node gets its parent link stamped, so a later
// split of that node knows where to propagate.
func (t *BPlusTree) findLeaf(key int32) (*pageGuard, error) {
	cur := t.meta.root
	parent := noPage

	for {
		g, err := t.fetchNode(cur, false)
		if err != nil {
			return nil, err
		}
		n := internalNode(g.pg, t.nodeCap)
		if n.parent() != parent {
			n.setParent(parent)
			g.markDirty()
		}
		child := n.child(routeRight(n, key))
		level := n.level()
		if err := g.release(); err != nil {
			return nil, err
		}

		if level == 0 {
			leaf, err := t.fetchNode(child, true)
			if err != nil {
				return nil, err
			}
			l := leafNode(leaf.pg, t.leafCap)
			if l.parent() != cur {
				l.setParent(cur)
				leaf.markDirty()
			}
			return leaf, nil
		}
		parent, cur = cur, child
	}
}

// findScanLeaf returns, pinned, the leftmost leaf that may contain a key >= low.
// It only reads.
func (t *BPlusTree) findScanLeaf(low int32) (*pageGuard, error) {
	if t.meta.rootIsLeaf {
		return t.fetchNode(t.meta.root, true)
	}

	cur := t.meta.root
	for {
		g, err := t.fetchNode(cur, false)
		if err != nil {
			return nil, err
		}
		n := internalNode(g.pg, t.nodeCap)
		child := n.child(routeLow(n, low))
		level := n.level()
		if err := g.release(); err != nil {
			return nil, err
		}
		if level == 0 {
			return t.fetchNode(child, true)
		}
		cur = child
	}
}
