package bplus

import (
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"fmt"
)

// pageGuard owns one pin on a page. release unpins it exactly once, dirty
// only if markDirty was called; keep hands the pin to a longer-lived owner
// (the scan cursor) and turns release into a no-op.
type pageGuard struct {
	t        *BPlusTree
	pg       *page.Page
	dirty    bool
	released bool
}

func (t *BPlusTree) pageID(local uint32) int64 {
	return page.GlobalID(t.fileID, local)
}

// fetch pins a page of this index by its local number.
func (t *BPlusTree) fetch(local uint32) (*pageGuard, error) {
	pg, err := t.store.FetchPage(t.pageID(local))
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", local, err)
	}
	return &pageGuard{t: t, pg: pg}, nil
}

// fetchNode pins a node page and checks it is the kind the caller expects.
func (t *BPlusTree) fetchNode(local uint32, wantLeaf bool) (*pageGuard, error) {
	if local == noPage {
		return nil, fmt.Errorf("%w: link to page 0", ErrCorruptIndex)
	}
	g, err := t.fetch(local)
	if err != nil {
		return nil, err
	}
	if g.pg.PageType != types.PageTypeBPlusNode || isLeafPage(g.pg) != wantLeaf {
		_ = g.release()
		return nil, fmt.Errorf("%w: page %d is not a %s node", ErrCorruptIndex, local, nodeKind(wantLeaf))
	}
	return g, nil
}

// allocate pins a fresh page of this index. New pages are always dirty.
func (t *BPlusTree) allocate() (*pageGuard, error) {
	pg, err := t.store.NewPage(t.fileID, types.PageTypeBPlusNode)
	if err != nil {
		return nil, fmt.Errorf("allocate page: %w", err)
	}
	return &pageGuard{t: t, pg: pg, dirty: true}, nil
}

func (g *pageGuard) local() uint32 {
	return g.pg.Local()
}

func (g *pageGuard) markDirty() {
	g.dirty = true
}

func (g *pageGuard) release() error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	return g.t.store.UnpinPage(g.pg.ID, g.dirty)
}

// done releases the guard from a defer, keeping the first error seen.
func (g *pageGuard) done(err *error) {
	if rerr := g.release(); rerr != nil && *err == nil {
		*err = rerr
	}
}

// keep transfers the pin to the caller.
func (g *pageGuard) keep() *page.Page {
	g.released = true
	return g.pg
}

func nodeKind(leaf bool) string {
	if leaf {
		return "leaf"
	}
	return "internal"
}
