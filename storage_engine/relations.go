package storageengine

import (
	heapfile "IdxDB/storage_engine/access/heapfile_manager"
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/types"
	"errors"
	"fmt"
	"time"
)

/*
Relations are untyped: a tuple is a byte string and an index reads its key
as a little-endian int32 at a fixed byte offset. Every open index of a
relation is maintained on insert.
*/

// CreateRelation registers a relation and creates its heap file.
func (se *StorageEngine) CreateRelation(name string) error {
	if err := heapfile.ValidateRelationName(name); err != nil {
		return err
	}
	if len(name) > bplus.MaxRelationNameLen {
		return fmt.Errorf("%q: %w", name, bplus.ErrRelationNameTooLong)
	}

	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return ErrEngineClosed
	}

	fileID, err := se.CatalogManager.RegisterRelation(name)
	if err != nil {
		return err
	}
	if _, err := se.HeapManager.CreateHeapFile(name, fileID); err != nil {
		_ = se.CatalogManager.UnregisterRelation(name)
		return fmt.Errorf("create relation %s: %w", name, err)
	}
	return nil
}

// InsertTuple appends data to the relation and adds it to every index of
// the relation. A failed index insert is returned with the rid; the tuple
// stays in the heap and in the indexes updated before it, nothing is rolled back.
func (se *StorageEngine) InsertTuple(relation string, data []byte) (types.RecordID, error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return types.RecordID{}, ErrEngineClosed
	}

	hf, err := se.HeapManager.GetHeapFile(relation)
	if err != nil {
		return types.RecordID{}, err
	}

	// check every key first so a short tuple never lands in the heap
	trees := se.IndexManager.IndexesFor(relation)
	keys := make([]int32, len(trees))
	for i, tree := range trees {
		if keys[i], err = bplus.KeyAt(data, tree.AttrByteOffset()); err != nil {
			return types.RecordID{}, fmt.Errorf("InsertTuple %s: index %s: %w", relation, tree.Name(), err)
		}
	}

	rid, err := hf.InsertRecord(data)
	if err != nil {
		return types.RecordID{}, fmt.Errorf("InsertTuple %s: %w", relation, err)
	}
	for i, tree := range trees {
		if err := tree.Insert(keys[i], rid); err != nil {
			return rid, fmt.Errorf("InsertTuple %s: index %s: %w", relation, tree.Name(), err)
		}
	}
	return rid, nil
}

// GetTuple reads one tuple back by record id.
func (se *StorageEngine) GetTuple(relation string, rid types.RecordID) ([]byte, error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return nil, ErrEngineClosed
	}

	hf, err := se.HeapManager.GetHeapFile(relation)
	if err != nil {
		return nil, err
	}
	return hf.GetRecord(rid)
}

// ScanRelation calls fn for every tuple of the relation in physical order.
func (se *StorageEngine) ScanRelation(relation string, fn func(rid types.RecordID, data []byte) error) (err error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return ErrEngineClosed
	}

	hf, err := se.HeapManager.GetHeapFile(relation)
	if err != nil {
		return err
	}
	scan, err := hf.NewFileScan()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scan.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	start := time.Now()
	for {
		rid, data, err := scan.Next()
		if errors.Is(err, types.ErrEndOfRelation) {
			se.Metrics.RecordOperation("heap_scan", time.Since(start))
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rid, data); err != nil {
			return err
		}
	}
}
