package heapfile

import (
	"IdxDB/types"
	"fmt"
)

// this file contains the record operations of a single heap file

func (hf *HeapFile) FileID() uint32   { return hf.fileID }
func (hf *HeapFile) Relation() string { return hf.relation }

// NumPages is the number of pages in the heap file, unwritten ones included.
func (hf *HeapFile) NumPages() (uint32, error) {
	n, err := hf.diskManager.NumPages(hf.fileID)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// InsertRecord appends a record to the last page, starting a new page when
// it does not fit.
func (hf *HeapFile) InsertRecord(data []byte) (types.RecordID, error) {
	if len(data) == 0 || len(data) > MaxRecordSize {
		return types.RecordID{}, fmt.Errorf("InsertRecord: record size %d outside (0, %d]", len(data), MaxRecordSize)
	}

	hf.mu.Lock()
	defer hf.mu.Unlock()

	pg, err := hf.bufferPool.FetchPage(hf.pageID(hf.lastPage))
	if err != nil {
		return types.RecordID{}, fmt.Errorf("InsertRecord: failed to fetch page %d: %w", hf.lastPage, err)
	}

	if (heapPage{pg}).freeSpace() < len(data) {
		if err := hf.bufferPool.UnpinPage(pg.ID, false); err != nil {
			return types.RecordID{}, err
		}
		pg, err = hf.bufferPool.NewPage(hf.fileID, types.PageTypeHeapData)
		if err != nil {
			return types.RecordID{}, fmt.Errorf("InsertRecord: failed to allocate page: %w", err)
		}
		heapPage{pg}.format(pg.Local())
		hf.lastPage = pg.Local()
	}

	pg.Lock()
	slot, err := heapPage{pg}.add(data)
	pg.Unlock()
	if err != nil {
		_ = hf.bufferPool.UnpinPage(pg.ID, true)
		return types.RecordID{}, err
	}

	rid := types.RecordID{PageNumber: pg.Local(), SlotIndex: slot}
	if err := hf.bufferPool.UnpinPage(pg.ID, true); err != nil {
		return types.RecordID{}, err
	}

	hf.log.Trace().Stringer("rid", rid).Int("len", len(data)).Msg("insert")
	return rid, nil
}

// GetRecord returns a copy of the record rid points at.
func (hf *HeapFile) GetRecord(rid types.RecordID) (data []byte, err error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()

	pg, err := hf.bufferPool.FetchPage(hf.pageID(rid.PageNumber))
	if err != nil {
		return nil, fmt.Errorf("GetRecord %s: %w", rid, err)
	}
	defer func() {
		if uerr := hf.bufferPool.UnpinPage(pg.ID, false); uerr != nil && err == nil {
			data, err = nil, fmt.Errorf("GetRecord %s: %w", rid, uerr)
		}
	}()

	if pg.PageType != types.PageTypeHeapData {
		return nil, fmt.Errorf("GetRecord %s: page is %s, not a heap page", rid, pg.PageType)
	}

	pg.RLock()
	defer pg.RUnlock()
	return heapPage{pg}.record(rid.SlotIndex)
}
