package bplus

import "fmt"

// createNewRoot grows the tree by one level after the root split into
// (left, sep, right). level is 0 when the old root was a leaf.
func (t *BPlusTree) createNewRoot(left uint32, sep int32, right uint32, level uint16) error {
	rg, err := t.allocate()
	if err != nil {
		return fmt.Errorf("createNewRoot: %w", err)
	}
	root := initInternal(rg.pg, t.nodeCap, level)
	root.setKey(0, sep)
	root.setChild(0, left)
	root.setChild(1, right)
	root.setFreeSlots(t.nodeCap - 1)
	rootPage := rg.local()
	if err := rg.release(); err != nil {
		return err
	}

	childIsLeaf := level == 0
	for _, c := range []uint32{left, right} {
		if err := t.setParent(c, childIsLeaf, rootPage); err != nil {
			return fmt.Errorf("createNewRoot: %w", err)
		}
	}

	old := t.meta
	t.meta.root = rootPage
	t.meta.rootIsLeaf = false
	if err := t.saveMeta(); err != nil {
		t.meta = old
		return fmt.Errorf("createNewRoot: %w", err)
	}

	t.metrics.RecordSplit("root")
	zl := t.log.GetZerolog()
	zl.Info().
		Uint32("root", rootPage).
		Uint16("level", level).
		Int32("separator", sep).
		Msg("new root")
	return nil
}
