package heapfile

import (
	"IdxDB/types"
	"fmt"
)

// NewFileScan starts a sequential scan over every record present when the
// scan starts. Call Close when abandoning a scan before ErrEndOfRelation.
func (hf *HeapFile) NewFileScan() (*FileScan, error) {
	n, err := hf.NumPages()
	if err != nil {
		return nil, fmt.Errorf("NewFileScan: %w", err)
	}
	return &FileScan{hf: hf, numPages: n}, nil
}

// Next returns the next record and its id, or types.ErrEndOfRelation.
func (fs *FileScan) Next() (types.RecordID, []byte, error) {
	for !fs.done {
		if fs.pg == nil {
			if fs.pageNo >= fs.numPages {
				fs.done = true
				break
			}
			pg, err := fs.hf.bufferPool.FetchPage(fs.hf.pageID(fs.pageNo))
			if err != nil {
				return types.RecordID{}, nil, fmt.Errorf("FileScan: page %d: %w", fs.pageNo, err)
			}
			fs.pg = pg
			fs.slot = 0
		}

		if fs.pg.PageType == types.PageTypeHeapData && fs.slot < (heapPage{fs.pg}).slotCount() {
			fs.pg.RLock()
			data, err := heapPage{fs.pg}.record(fs.slot)
			fs.pg.RUnlock()
			if err != nil {
				return types.RecordID{}, nil, err
			}
			rid := types.RecordID{PageNumber: fs.pageNo, SlotIndex: fs.slot}
			fs.slot++
			return rid, data, nil
		}

		if err := fs.releasePage(); err != nil {
			return types.RecordID{}, nil, err
		}
		fs.pageNo++
	}
	return types.RecordID{}, nil, types.ErrEndOfRelation
}

// Close releases the page held by an unfinished scan.
func (fs *FileScan) Close() error {
	fs.done = true
	return fs.releasePage()
}

func (fs *FileScan) releasePage() error {
	if fs.pg == nil {
		return nil
	}
	id := fs.pg.ID
	fs.pg = nil
	return fs.hf.bufferPool.UnpinPage(id, false)
}
