package bplus

import (
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
Metadata page, always local page 0 of the index file:

	0   magic           [8]byte "IDXBTREE"
	8   pageType        uint8   stamped by the disk manager
	9   attrType        uint8
	10  attrByteOffset  int32
	14  root            uint32  local page of the root node
	18  rootIsLeaf      uint8   1 until the first split
	20  leafCapacity    uint16
	22  nodeCapacity    uint16
	24  nameLen         uint16
	26  relationName    [64]byte
*/

const (
	metaPageNo uint32 = 0

	metaOffMagic      = 0
	metaOffAttrType   = 9
	metaOffAttrOffset = 10
	metaOffRoot       = 14
	metaOffRootIsLeaf = 18
	metaOffLeafCap    = 20
	metaOffNodeCap    = 22
	metaOffNameLen    = 24
	metaOffName       = 26

	// MaxRelationNameLen is the room reserved for the relation name.
	MaxRelationNameLen = 64
)

var metaMagic = []byte("IDXBTREE")

type indexMeta struct {
	relationName   string
	attrByteOffset int32
	attrType       types.Datatype
	root           uint32
	rootIsLeaf     bool
	leafCap        uint16
	nodeCap        uint16
}

func encodeMeta(m indexMeta, pg *page.Page) {
	d := pg.Data
	for i := range d {
		d[i] = 0
	}
	copy(d[metaOffMagic:], metaMagic)
	d[page.PageTypeOffset] = byte(types.PageTypeMetadata)
	pg.PageType = types.PageTypeMetadata
	d[metaOffAttrType] = byte(m.attrType)
	binary.LittleEndian.PutUint32(d[metaOffAttrOffset:], uint32(m.attrByteOffset))
	binary.LittleEndian.PutUint32(d[metaOffRoot:], m.root)
	if m.rootIsLeaf {
		d[metaOffRootIsLeaf] = 1
	}
	binary.LittleEndian.PutUint16(d[metaOffLeafCap:], m.leafCap)
	binary.LittleEndian.PutUint16(d[metaOffNodeCap:], m.nodeCap)
	binary.LittleEndian.PutUint16(d[metaOffNameLen:], uint16(len(m.relationName)))
	copy(d[metaOffName:metaOffName+MaxRelationNameLen], m.relationName)
}

func decodeMeta(pg *page.Page) (indexMeta, error) {
	d := pg.Data
	if !bytes.Equal(d[metaOffMagic:metaOffMagic+len(metaMagic)], metaMagic) {
		return indexMeta{}, fmt.Errorf("%w: bad magic on metadata page", ErrCorruptIndex)
	}
	nameLen := int(binary.LittleEndian.Uint16(d[metaOffNameLen:]))
	if nameLen > MaxRelationNameLen {
		return indexMeta{}, fmt.Errorf("%w: relation name length %d", ErrCorruptIndex, nameLen)
	}
	m := indexMeta{
		relationName:   string(d[metaOffName : metaOffName+nameLen]),
		attrByteOffset: int32(binary.LittleEndian.Uint32(d[metaOffAttrOffset:])),
		attrType:       types.Datatype(d[metaOffAttrType]),
		root:           binary.LittleEndian.Uint32(d[metaOffRoot:]),
		rootIsLeaf:     d[metaOffRootIsLeaf] == 1,
		leafCap:        binary.LittleEndian.Uint16(d[metaOffLeafCap:]),
		nodeCap:        binary.LittleEndian.Uint16(d[metaOffNodeCap:]),
	}
	if m.root == noPage {
		return indexMeta{}, fmt.Errorf("%w: metadata has no root", ErrCorruptIndex)
	}
	if int(m.leafCap) < MinCapacity || int(m.leafCap) > MaxLeafCapacity ||
		int(m.nodeCap) < MinCapacity || int(m.nodeCap) > MaxNodeCapacity {
		return indexMeta{}, fmt.Errorf("%w: capacities leaf=%d node=%d", ErrCorruptIndex, m.leafCap, m.nodeCap)
	}
	return m, nil
}

// matches reports whether the stored metadata describes the requested index.
func (m indexMeta) matches(req IndexRequest) bool {
	return m.relationName == req.RelationName &&
		m.attrByteOffset == req.AttrByteOffset &&
		m.attrType == req.AttrType
}

// loadMeta reads page 0 into the cached copy.
func (t *BPlusTree) loadMeta() (err error) {
	g, err := t.fetch(metaPageNo)
	if err != nil {
		return fmt.Errorf("loadMeta: %w", err)
	}
	defer g.done(&err)

	if g.pg.PageType != types.PageTypeMetadata {
		return fmt.Errorf("loadMeta: %w: page 0 is %s", ErrCorruptIndex, g.pg.PageType)
	}
	m, err := decodeMeta(g.pg)
	if err != nil {
		return fmt.Errorf("loadMeta: %w", err)
	}
	t.meta = m
	return nil
}

// saveMeta writes the cached copy back to page 0 and flushes it, so the file
// always names the current root. Called whenever the root changes.
func (t *BPlusTree) saveMeta() error {
	g, err := t.fetch(metaPageNo)
	if err != nil {
		return fmt.Errorf("saveMeta: %w", err)
	}
	encodeMeta(t.meta, g.pg)
	g.markDirty()
	if err := g.release(); err != nil {
		return fmt.Errorf("saveMeta: %w", err)
	}
	if err := t.store.FlushPage(t.pageID(metaPageNo)); err != nil {
		return fmt.Errorf("saveMeta: %w", err)
	}
	return nil
}
