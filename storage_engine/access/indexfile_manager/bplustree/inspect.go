// Index inspection for debugging and tests: a level-order walk, a text dump,
// size statistics and a structural checker.

package bplus

import (
	"IdxDB/types"
	"fmt"
	"io"
)

// NodeInfo is a copy of one node, taken while it was pinned.
type NodeInfo struct {
	Page     uint32
	Leaf     bool
	Level    uint16 // internal only
	Parent   uint32
	RightSib uint32 // leaf only
	Keys     []int32
	Children []uint32         // internal only
	Rids     []types.RecordID // leaf only
}

// TreeStats summarises the shape of the tree.
type TreeStats struct {
	Height    int
	Leaves    int
	Internals int
	Entries   int
}

func (t *BPlusTree) readNode(local uint32, leaf bool) (info NodeInfo, err error) {
	g, err := t.fetchNode(local, leaf)
	if err != nil {
		return NodeInfo{}, err
	}
	defer g.done(&err)

	info = NodeInfo{Page: local, Leaf: leaf}
	if leaf {
		n := leafNode(g.pg, t.leafCap)
		info.Parent, info.RightSib, info.Keys = n.parent(), n.rightSib(), n.keys()
		info.Rids = make([]types.RecordID, n.count())
		for i := range info.Rids {
			info.Rids[i] = n.rid(i)
		}
		return info, nil
	}
	n := internalNode(g.pg, t.nodeCap)
	info.Parent, info.Level = n.parent(), n.level()
	info.Keys, info.Children = n.keys(), n.children()
	return info, nil
}

// Walk visits every node level by level from the root. depth is 0 at the root.
// Only one page is pinned at a time.
func (t *BPlusTree) Walk(fn func(depth int, n NodeInfo) error) error {
	if t.closed {
		return ErrClosed
	}
	type item struct {
		page uint32
		leaf bool
	}
	queue := []item{{t.meta.root, t.meta.rootIsLeaf}}
	for depth := 0; len(queue) > 0; depth++ {
		var next []item
		for _, it := range queue {
			info, err := t.readNode(it.page, it.leaf)
			if err != nil {
				return err
			}
			if err := fn(depth, info); err != nil {
				return err
			}
			for _, c := range info.Children {
				next = append(next, item{c, info.Level == 0})
			}
		}
		queue = next
	}
	return nil
}

// Stats walks the whole tree.
func (t *BPlusTree) Stats() (TreeStats, error) {
	var st TreeStats
	err := t.Walk(func(depth int, n NodeInfo) error {
		if depth+1 > st.Height {
			st.Height = depth + 1
		}
		if n.Leaf {
			st.Leaves++
			st.Entries += len(n.Keys)
		} else {
			st.Internals++
		}
		return nil
	})
	return st, err
}

// Dump writes a level-order listing of the tree to w.
func (t *BPlusTree) Dump(w io.Writer) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Index %s (file %d)\n", t.name, t.fileID)
	p("  relation=%s offset=%d type=%s leafCap=%d nodeCap=%d\n",
		t.meta.relationName, t.meta.attrByteOffset, t.meta.attrType, t.leafCap, t.nodeCap)
	p("  root=%d rootIsLeaf=%v\n", t.meta.root, t.meta.rootIsLeaf)

	last := -1
	return t.Walk(func(depth int, n NodeInfo) error {
		if depth != last {
			p("  Level %d:\n", depth)
			last = depth
		}
		if !n.Leaf {
			p("    [page %d] INTERNAL level=%d parent=%d keys=%v children=%v\n",
				n.Page, n.Level, n.Parent, n.Keys, n.Children)
			return nil
		}
		p("    [page %d] LEAF parent=%d next=%d\n", n.Page, n.Parent, n.RightSib)
		for i, k := range n.Keys {
			p("      %d -> %s\n", k, n.Rids[i])
		}
		return nil
	})
}

type subtree struct {
	min, max  int32
	entries   int
	leafDepth int
}

// CheckInvariants verifies the structure of the whole tree:
//   - keys are sorted inside every node
//   - for separator i, max(child i) <= key i and min(child i+1) == key i
//   - all leaves are at the same depth and levels decrease by one per step
//   - parent links point at the actual parent, the root has none
//   - the leaf chain visits every leaf left to right and ends at page 0
func (t *BPlusTree) CheckInvariants() error {
	if t.closed {
		return ErrClosed
	}
	var leaves []NodeInfo
	if _, err := t.check(t.meta.root, t.meta.rootIsLeaf, noPage, 0, &leaves); err != nil {
		return err
	}

	for i, l := range leaves {
		want := noPage
		if i+1 < len(leaves) {
			want = leaves[i+1].Page
		}
		if l.RightSib != want {
			return fmt.Errorf("%w: leaf %d links to %d, next leaf is %d", ErrCorruptIndex, l.Page, l.RightSib, want)
		}
		if i > 0 && len(l.Keys) > 0 {
			prev := leaves[i-1].Keys
			if len(prev) > 0 && prev[len(prev)-1] > l.Keys[0] {
				return fmt.Errorf("%w: leaf %d starts below its left neighbour", ErrCorruptIndex, l.Page)
			}
		}
	}
	return nil
}

func (t *BPlusTree) check(local uint32, leaf bool, parent uint32, depth int, leaves *[]NodeInfo) (subtree, error) {
	n, err := t.readNode(local, leaf)
	if err != nil {
		return subtree{}, err
	}
	if n.Parent != parent {
		return subtree{}, fmt.Errorf("%w: page %d has parent %d, expected %d", ErrCorruptIndex, local, n.Parent, parent)
	}
	for i := 1; i < len(n.Keys); i++ {
		if n.Keys[i-1] > n.Keys[i] {
			return subtree{}, fmt.Errorf("%w: page %d keys out of order at %d", ErrCorruptIndex, local, i)
		}
	}

	if leaf {
		if len(n.Keys) == 0 && parent != noPage {
			return subtree{}, fmt.Errorf("%w: empty leaf %d", ErrCorruptIndex, local)
		}
		*leaves = append(*leaves, n)
		st := subtree{entries: len(n.Keys), leafDepth: depth}
		if len(n.Keys) > 0 {
			st.min, st.max = n.Keys[0], n.Keys[len(n.Keys)-1]
		}
		return st, nil
	}

	if len(n.Keys) == 0 {
		return subtree{}, fmt.Errorf("%w: internal node %d has no keys", ErrCorruptIndex, local)
	}
	var out subtree
	for i, c := range n.Children {
		childLeaf := n.Level == 0
		if !childLeaf {
			lvl, err := t.levelOf(c)
			if err != nil {
				return subtree{}, err
			}
			if lvl != n.Level-1 {
				return subtree{}, fmt.Errorf("%w: page %d at level %d under level %d", ErrCorruptIndex, c, lvl, n.Level)
			}
		}
		st, err := t.check(c, childLeaf, local, depth+1, leaves)
		if err != nil {
			return subtree{}, err
		}
		if i > 0 && st.min != n.Keys[i-1] {
			return subtree{}, fmt.Errorf("%w: child %d of page %d starts at %d, separator is %d",
				ErrCorruptIndex, c, local, st.min, n.Keys[i-1])
		}
		if i < len(n.Keys) && st.max > n.Keys[i] {
			return subtree{}, fmt.Errorf("%w: child %d of page %d reaches %d, separator is %d",
				ErrCorruptIndex, c, local, st.max, n.Keys[i])
		}
		if i == 0 {
			out = st
			continue
		}
		if st.leafDepth != out.leafDepth {
			return subtree{}, fmt.Errorf("%w: leaves of page %d at different depths", ErrCorruptIndex, local)
		}
		out.max = st.max
		out.entries += st.entries
	}
	return out, nil
}

func (t *BPlusTree) levelOf(local uint32) (lvl uint16, err error) {
	g, err := t.fetchNode(local, false)
	if err != nil {
		return 0, err
	}
	defer g.done(&err)
	return internalNode(g.pg, t.nodeCap).level(), nil
}
