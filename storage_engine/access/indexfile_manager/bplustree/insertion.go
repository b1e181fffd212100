package bplus

import (
	"IdxDB/types"
	"fmt"
	"time"
)

// Insert adds (key, rid) to the leaf that owns key. Duplicate keys are kept
// in insertion order. A full leaf is split, which may cascade up to a new root.
func (t *BPlusTree) Insert(key int32, rid types.RecordID) error {
	if t.closed {
		return ErrClosed
	}
	start := time.Now()

	var (
		leaf *pageGuard
		err  error
	)
	if t.meta.rootIsLeaf {
		leaf, err = t.fetchNode(t.meta.root, true)
	} else {
		leaf, err = t.findLeaf(key)
	}
	if err != nil {
		return fmt.Errorf("Insert %d: %w", key, err)
	}

	if err := t.insertIntoLeaf(leaf, key, rid); err != nil {
		return fmt.Errorf("Insert %d: %w", key, err)
	}

	t.metrics.IndexInserts.Inc()
	t.metrics.RecordOperation("insert", time.Since(start))
	return nil
}

// insertIntoLeaf consumes the pin held by leaf.
func (t *BPlusTree) insertIntoLeaf(leaf *pageGuard, key int32, rid types.RecordID) error {
	n := leafNode(leaf.pg, t.leafCap)
	if n.freeSlots() == 0 {
		return t.splitLeaf(leaf, key, rid)
	}
	n.leafInsert(key, rid)
	leaf.markDirty()
	return leaf.release()
}
