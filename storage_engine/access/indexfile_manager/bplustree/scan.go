package bplus

import (
	"IdxDB/types"
	"errors"
	"fmt"
)

// StartScan positions the cursor on the first entry inside the range given by
// (low, lowOp) and (high, highOp). lowOp must be GT or GTE and highOp LT or
// LTE. An active scan is ended first.
//
// The range (k, GT, k, LTE) is a point range and selects the entries equal
// to k.
func (t *BPlusTree) StartScan(low int32, lowOp types.Operator, high int32, highOp types.Operator) error {
	if t.closed {
		return ErrClosed
	}
	if (lowOp != types.GT && lowOp != types.GTE) || (highOp != types.LT && highOp != types.LTE) {
		return fmt.Errorf("StartScan(%d %s, %d %s): %w", low, lowOp, high, highOp, ErrBadOpcodes)
	}
	if low > high {
		return fmt.Errorf("StartScan(%d, %d): %w", low, high, ErrBadScanrange)
	}

	if t.scan.state != scanIdle {
		if err := t.EndScan(); err != nil {
			return err
		}
	}

	if low == high && lowOp == types.GT && highOp == types.LTE {
		lowOp = types.GTE
	}
	t.scan = scanCursor{
		state:  scanActive,
		low:    low,
		lowOp:  lowOp,
		high:   high,
		highOp: highOp,
	}

	g, err := t.findScanLeaf(low)
	if err != nil {
		t.scan = scanCursor{}
		return fmt.Errorf("StartScan: %w", err)
	}

	// skip entries below the lower bound, possibly across leaves
	for {
		n := leafNode(g.pg, t.leafCap)
		off := 0
		for off < n.count() && !t.scan.aboveLow(n.key(off)) {
			off++
		}
		if off < n.count() {
			if !t.scan.belowHigh(n.key(off)) {
				t.scan.state = scanExhausted
				return g.release()
			}
			t.scan.leaf = g.keep()
			t.scan.offset = off
			return nil
		}

		next := n.rightSib()
		if err := g.release(); err != nil {
			t.scan = scanCursor{}
			return err
		}
		if next == noPage {
			t.scan.state = scanExhausted
			return nil
		}
		if g, err = t.fetchNode(next, true); err != nil {
			t.scan = scanCursor{}
			return fmt.Errorf("StartScan: %w", err)
		}
	}
}

// ScanNext returns the record id of the next entry in range.
func (t *BPlusTree) ScanNext() (types.RecordID, error) {
	_, rid, err := t.ScanNextEntry()
	return rid, err
}

// ScanNextEntry is ScanNext that also returns the key.
func (t *BPlusTree) ScanNextEntry() (int32, types.RecordID, error) {
	switch t.scan.state {
	case scanIdle:
		return 0, types.RecordID{}, ErrScanNotInitialized
	case scanExhausted:
		return 0, types.RecordID{}, ErrIndexScanCompleted
	}

	n := leafNode(t.scan.leaf, t.leafCap)
	for t.scan.offset >= n.count() {
		next := n.rightSib()
		if err := t.unpinScanLeaf(); err != nil {
			return 0, types.RecordID{}, err
		}
		if next == noPage {
			return 0, types.RecordID{}, t.exhaust()
		}
		g, err := t.fetchNode(next, true)
		if err != nil {
			t.scan.state = scanExhausted
			return 0, types.RecordID{}, fmt.Errorf("ScanNext: %w", err)
		}
		t.scan.leaf = g.keep()
		t.scan.offset = 0
		n = leafNode(t.scan.leaf, t.leafCap)
	}

	key := n.key(t.scan.offset)
	if !t.scan.belowHigh(key) {
		if err := t.unpinScanLeaf(); err != nil {
			return 0, types.RecordID{}, err
		}
		return 0, types.RecordID{}, t.exhaust()
	}
	rid := n.rid(t.scan.offset)
	t.scan.offset++
	t.scan.returned++
	return key, rid, nil
}

// EndScan releases the cursor's leaf and returns the tree to idle.
func (t *BPlusTree) EndScan() error {
	if t.scan.state == scanIdle {
		return ErrScanNotInitialized
	}
	status := "ended"
	if t.scan.state == scanExhausted {
		status = "completed"
	}
	err := t.unpinScanLeaf()
	t.metrics.RecordScan(status, t.scan.returned)
	t.scan = scanCursor{}
	return err
}

// ScanRange runs a whole scan and collects the matching record ids.
func (t *BPlusTree) ScanRange(low int32, lowOp types.Operator, high int32, highOp types.Operator) (rids []types.RecordID, err error) {
	if err := t.StartScan(low, lowOp, high, highOp); err != nil {
		return nil, err
	}
	defer func() {
		if eerr := t.EndScan(); eerr != nil && err == nil {
			err = eerr
		}
	}()

	for {
		rid, err := t.ScanNext()
		if errors.Is(err, ErrIndexScanCompleted) {
			return rids, nil
		}
		if err != nil {
			return rids, err
		}
		rids = append(rids, rid)
	}
}

func (t *BPlusTree) exhaust() error {
	t.scan.state = scanExhausted
	return ErrIndexScanCompleted
}

// unpinScanLeaf drops the cursor's pin. The scan never writes, so the page is
// released clean.
func (t *BPlusTree) unpinScanLeaf() error {
	if t.scan.leaf == nil {
		return nil
	}
	id := t.scan.leaf.ID
	t.scan.leaf = nil
	return t.store.UnpinPage(id, false)
}

func (c *scanCursor) aboveLow(k int32) bool {
	if c.lowOp == types.GT {
		return k > c.low
	}
	return k >= c.low
}

func (c *scanCursor) belowHigh(k int32) bool {
	if c.highOp == types.LT {
		return k < c.high
	}
	return k <= c.high
}
