package bplus

import "fmt"

// splitInternal splits the full internal node held by g while inserting
// (key, right) at idx. The caller keeps ownership of g.
//
// Keys and children are first merged into scratch arrays of N+1 keys and N+2
// children. With m = N/2 the node keeps keys[:m], keys[m] moves up to the
// parent and a new sibling at the same level takes keys[m+1:]. Children that
// land in the sibling are re-stamped with their new parent.
func (t *BPlusTree) splitInternal(g *pageGuard, idx int, key int32, right uint32) (int32, uint32, error) {
	n := internalNode(g.pg, t.nodeCap)
	N := t.nodeCap

	keys := make([]int32, 0, N+1)
	kids := make([]uint32, 0, N+2)
	keys = append(keys, n.keys()[:idx]...)
	keys = append(keys, key)
	keys = append(keys, n.keys()[idx:]...)
	kids = append(kids, n.children()[:idx+1]...)
	kids = append(kids, right)
	kids = append(kids, n.children()[idx+1:]...)

	sg, err := t.allocate()
	if err != nil {
		return 0, 0, fmt.Errorf("splitInternal: failed to allocate sibling: %w", err)
	}
	sib := initInternal(sg.pg, N, n.level())
	sib.setParent(n.parent())

	m := N / 2
	for i := 0; i < m; i++ {
		n.setKey(i, keys[i])
	}
	for i := 0; i <= m; i++ {
		n.setChild(i, kids[i])
	}
	n.setFreeSlots(N - m)
	g.markDirty()

	push := keys[m]
	sibKeys, sibKids := keys[m+1:], kids[m+1:]
	for i, k := range sibKeys {
		sib.setKey(i, k)
	}
	for i, c := range sibKids {
		sib.setChild(i, c)
	}
	sib.setFreeSlots(N - len(sibKeys))

	sibling := sg.local()
	if err := sg.release(); err != nil {
		return 0, 0, err
	}

	childIsLeaf := n.level() == 0
	for _, c := range sibKids {
		if err := t.setParent(c, childIsLeaf, sibling); err != nil {
			return 0, 0, fmt.Errorf("splitInternal: %w", err)
		}
	}

	t.metrics.RecordSplit("internal")
	zl := t.log.GetZerolog()
	zl.Debug().
		Uint32("left", g.local()).
		Uint32("right", sibling).
		Uint16("level", n.level()).
		Int32("pushed", push).
		Msg("internal split")
	return push, sibling, nil
}

// setParent points the node at local to parent.
func (t *BPlusTree) setParent(local uint32, leaf bool, parent uint32) error {
	g, err := t.fetchNode(local, leaf)
	if err != nil {
		return err
	}
	n := node{data: g.pg.Data}
	if n.parent() != parent {
		n.setParent(parent)
		g.markDirty()
	}
	return g.release()
}
