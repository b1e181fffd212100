package heapfile

import (
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"encoding/binary"
	"fmt"
)

/*
Slotted heap page, little-endian:

	off  size  field
	0    4     pageNo      local page number inside the heap file
	4    4     reserved
	8    1     pageType    stamped by the disk manager on write
	9    2     recEnd      first free byte after the last record
	11   2     slotStart   first byte of the slot directory
	13   2     slotCount
	15   1     full        1 once no record fits
	16         records grow up from here

The slot directory grows down from the end of the page, 4 bytes per slot
(offset uint16, length uint16); slot i starts at PageSize - (i+1)*SlotSize.
Records are never deleted, so every slot below slotCount is live.
*/
const (
	hpPageNo    = 0
	hpRecEnd    = 9
	hpSlotStart = 11
	hpSlotCount = 13
	hpFull      = 15

	HeapHeaderSize = types.HeapPageHeaderSize
	SlotSize       = types.SlotSize

	// MaxRecordSize is the largest record that fits an empty page.
	MaxRecordSize = page.PageSize - HeapHeaderSize - SlotSize
)

// heapPage is a view over the bytes of one pinned heap page.
type heapPage struct {
	pg *page.Page
}

func (h heapPage) u16(off int) uint16 { return binary.LittleEndian.Uint16(h.pg.Data[off:]) }
func (h heapPage) put16(off int, v uint16) {
	binary.LittleEndian.PutUint16(h.pg.Data[off:], v)
}

func (h heapPage) pageNo() uint32    { return binary.LittleEndian.Uint32(h.pg.Data[hpPageNo:]) }
func (h heapPage) recEnd() uint16    { return h.u16(hpRecEnd) }
func (h heapPage) slotStart() uint16 { return h.u16(hpSlotStart) }
func (h heapPage) slotCount() uint16 { return h.u16(hpSlotCount) }

// freeSpace is the room left for one more record, its slot already deducted.
func (h heapPage) freeSpace() int {
	n := int(h.slotStart()) - int(h.recEnd()) - SlotSize
	if n < 0 {
		return 0
	}
	return n
}

func slotAt(i uint16) int {
	return page.PageSize - (int(i)+1)*SlotSize
}

func (h heapPage) slot(i uint16) (offset, length uint16) {
	base := slotAt(i)
	return h.u16(base), h.u16(base + 2)
}

// format zeroes the frame and writes an empty header.
func (h heapPage) format(pageNo uint32) {
	clear(h.pg.Data[:])
	binary.LittleEndian.PutUint32(h.pg.Data[hpPageNo:], pageNo)
	h.pg.Data[page.PageTypeOffset] = byte(types.PageTypeHeapData)
	h.put16(hpRecEnd, HeapHeaderSize)
	h.put16(hpSlotStart, page.PageSize)
	h.pg.PageType = types.PageTypeHeapData
	h.pg.IsDirty = true
}

// add copies data into the page and returns its slot. The caller moves to a
// new page when the record does not fit.
func (h heapPage) add(data []byte) (uint16, error) {
	switch {
	case len(data) == 0:
		return 0, fmt.Errorf("heap page %d: empty record", h.pageNo())
	case len(data) > MaxRecordSize:
		return 0, fmt.Errorf("heap page %d: record of %d bytes exceeds %d", h.pageNo(), len(data), MaxRecordSize)
	case len(data) > h.freeSpace():
		return 0, fmt.Errorf("heap page %d: record of %d bytes, %d free", h.pageNo(), len(data), h.freeSpace())
	}

	idx := h.slotCount()
	at := h.recEnd()
	n := uint16(len(data))
	copy(h.pg.Data[at:], data)
	h.put16(hpRecEnd, at+n)

	base := slotAt(idx)
	h.put16(base, at)
	h.put16(base+2, n)
	h.put16(hpSlotStart, h.slotStart()-SlotSize)
	h.put16(hpSlotCount, idx+1)
	if h.freeSpace() == 0 {
		h.pg.Data[hpFull] = 1
	}
	h.pg.IsDirty = true
	return idx, nil
}

// record returns a copy of the record in slot i.
func (h heapPage) record(i uint16) ([]byte, error) {
	if i >= h.slotCount() {
		return nil, fmt.Errorf("heap page %d: slot %d of %d", h.pageNo(), i, h.slotCount())
	}
	off, n := h.slot(i)
	if n == 0 || int(off)+int(n) > page.PageSize {
		return nil, fmt.Errorf("heap page %d: corrupt slot %d (offset=%d length=%d)", h.pageNo(), i, off, n)
	}
	out := make([]byte, n)
	copy(out, h.pg.Data[off:off+n])
	return out, nil
}
