package storageengine

import (
	heapfile "IdxDB/storage_engine/access/heapfile_manager"
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/storage_engine/catalog"
	"IdxDB/types"
	"errors"
	"fmt"
	"time"
)

/*
This file contains the index operations of the engine.
A new index is built by a bulk load over the relation's heap file; after
that InsertTuple keeps it current.
*/

// CreateIndex builds (or reopens) the index on attrByteOffset of relation.
func (se *StorageEngine) CreateIndex(relation string, attrByteOffset int32, attrType types.Datatype) (*bplus.BPlusTree, error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return nil, ErrEngineClosed
	}

	hf, err := se.HeapManager.GetHeapFile(relation)
	if err != nil {
		return nil, err
	}
	if attrType != types.INTEGER {
		return nil, fmt.Errorf("CreateIndex %s: %w", bplus.IndexName(relation, attrByteOffset), bplus.ErrUnsupportedKeyType)
	}

	fileID, created, err := se.CatalogManager.RegisterIndex(relation, attrByteOffset, attrType)
	if err != nil {
		return nil, err
	}
	tree, err := se.openIndex(hf, attrByteOffset, catalog.IndexEntry{FileID: fileID, AttrByteOffset: attrByteOffset, AttrType: attrType})
	if err != nil {
		if created {
			_ = se.CatalogManager.UnregisterIndex(relation, attrByteOffset)
		}
		return nil, err
	}
	return tree, nil
}

// openIndex opens a registered index, bulk loading it from the heap file
// when its file does not exist yet.
func (se *StorageEngine) openIndex(hf *heapfile.HeapFile, attrByteOffset int32, ie catalog.IndexEntry) (*bplus.BPlusTree, error) {
	scan, err := hf.NewFileScan()
	if err != nil {
		return nil, err
	}
	tree, err := se.IndexManager.OpenIndex(hf.Relation(), attrByteOffset, ie.AttrType, ie.FileID, scan)
	if cerr := scan.Close(); err == nil && cerr != nil {
		_ = se.IndexManager.CloseIndex(hf.Relation(), attrByteOffset)
		return nil, cerr
	}
	return tree, err
}

// DropIndex closes the index, deletes its file and removes it from the catalog.
func (se *StorageEngine) DropIndex(relation string, attrByteOffset int32) error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return ErrEngineClosed
	}

	if _, err := se.CatalogManager.GetIndex(relation, attrByteOffset); err != nil {
		return err
	}
	if err := se.IndexManager.DropIndex(relation, attrByteOffset); err != nil {
		return err
	}
	return se.CatalogManager.UnregisterIndex(relation, attrByteOffset)
}

// Index returns an open index.
func (se *StorageEngine) Index(relation string, attrByteOffset int32) (*bplus.BPlusTree, error) {
	return se.IndexManager.GetIndex(relation, attrByteOffset)
}

// RangeQuery returns the tuples whose key at attrByteOffset lies in the range,
// in key order. The index must exist.
func (se *StorageEngine) RangeQuery(relation string, attrByteOffset int32, low int32, lowOp types.Operator, high int32, highOp types.Operator) (out []Tuple, err error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return nil, ErrEngineClosed
	}

	tree, err := se.IndexManager.GetIndex(relation, attrByteOffset)
	if err != nil {
		return nil, err
	}
	hf, err := se.HeapManager.GetHeapFile(relation)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := tree.StartScan(low, lowOp, high, highOp); err != nil {
		return nil, err
	}
	defer func() {
		if eerr := tree.EndScan(); eerr != nil && err == nil {
			err = eerr
		}
		se.Metrics.RecordOperation("range_query", time.Since(start))
	}()

	for {
		key, rid, err := tree.ScanNextEntry()
		if errors.Is(err, bplus.ErrIndexScanCompleted) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		data, err := hf.GetRecord(rid)
		if err != nil {
			return out, fmt.Errorf("RangeQuery: index %s points at %s: %w", tree.Name(), rid, err)
		}
		out = append(out, Tuple{Key: key, RID: rid, Data: data})
	}
}

// Stats walks every open index; it is meant for tools, not hot paths.
func (se *StorageEngine) Stats() (EngineStats, error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return EngineStats{}, ErrEngineClosed
	}

	st := EngineStats{
		BufferPool: se.BufferPool.GetStats(),
		Pins:       se.BufferPool.PinStats(),
		PageCache:  se.DiskManager.CacheMetrics(),
		DiskPages:  se.DiskManager.TotalPages(),
		Relations:  len(se.CatalogManager.Relations()),
		Indexes:    make(map[string]bplus.TreeStats),
	}
	for _, name := range se.CatalogManager.Relations() {
		for _, tree := range se.IndexManager.IndexesFor(name) {
			ts, err := tree.Stats()
			if err != nil {
				return st, fmt.Errorf("stats of %s: %w", tree.Name(), err)
			}
			st.Indexes[tree.Name()] = ts
		}
	}
	return st, nil
}
