package indexfile

import (
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/types"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

/*
This file is the main file for Index File Manager that deals with the index files.
Similar to HeapFileManager it shares the disk manager and buffer pool.

Each index is a B+ tree over one int32 attribute of a relation, stored in
<baseDir>/<relation>.<offset>. Open trees are cached by that name.
*/

var ErrIndexNotOpen = errors.New("indexfile: index not open")

func NewIndexFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool, opts bplus.Options) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	return &IndexFileManager{
		baseDir:     baseDir,
		indexes:     make(map[string]*bplus.BPlusTree),
		bufferPool:  bufferPool,
		diskManager: diskManager,
		opts:        opts,
	}, nil
}

// IndexPath is where the index on attrByteOffset of relation lives.
func (ifm *IndexFileManager) IndexPath(relation string, attrByteOffset int32) string {
	return filepath.Join(ifm.baseDir, bplus.IndexName(relation, attrByteOffset))
}

// OpenIndex returns the open tree for (relation, attrByteOffset), opening
// the file or building it from scanner on first use.
func (ifm *IndexFileManager) OpenIndex(relation string, attrByteOffset int32, attrType types.Datatype, fileID uint32, scanner bplus.RecordScanner) (*bplus.BPlusTree, error) {
	name := bplus.IndexName(relation, attrByteOffset)

	ifm.mu.RLock()
	tree, exists := ifm.indexes[name]
	ifm.mu.RUnlock()
	if exists {
		return tree, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// another goroutine may have opened it while we waited for the lock
	if tree, exists := ifm.indexes[name]; exists {
		return tree, nil
	}

	req := bplus.IndexRequest{
		Dir:            ifm.baseDir,
		FileID:         fileID,
		RelationName:   relation,
		AttrByteOffset: attrByteOffset,
		AttrType:       attrType,
	}
	tree, err := bplus.Open(req, ifm.bufferPool, ifm.diskManager, scanner, ifm.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}

	ifm.indexes[name] = tree
	return tree, nil
}

// GetIndex returns an index that is already open.
func (ifm *IndexFileManager) GetIndex(relation string, attrByteOffset int32) (*bplus.BPlusTree, error) {
	name := bplus.IndexName(relation, attrByteOffset)

	ifm.mu.RLock()
	defer ifm.mu.RUnlock()
	tree, exists := ifm.indexes[name]
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, ErrIndexNotOpen)
	}
	return tree, nil
}

// IndexesFor returns the open indexes of relation ordered by attribute offset.
func (ifm *IndexFileManager) IndexesFor(relation string) []*bplus.BPlusTree {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()

	var out []*bplus.BPlusTree
	for _, tree := range ifm.indexes {
		if tree.RelationName() == relation {
			out = append(out, tree)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttrByteOffset() < out[j].AttrByteOffset() })
	return out
}

// CloseIndex flushes and closes one index and drops it from the cache.
func (ifm *IndexFileManager) CloseIndex(relation string, attrByteOffset int32) error {
	name := bplus.IndexName(relation, attrByteOffset)

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	tree, exists := ifm.indexes[name]
	if !exists {
		return nil // not open, nothing to do
	}
	delete(ifm.indexes, name)
	if err := tree.Close(); err != nil {
		return fmt.Errorf("failed to close index %s: %w", name, err)
	}
	return nil
}

// DropIndex closes an index and removes its file.
func (ifm *IndexFileManager) DropIndex(relation string, attrByteOffset int32) error {
	if err := ifm.CloseIndex(relation, attrByteOffset); err != nil {
		return err
	}
	if err := os.Remove(ifm.IndexPath(relation, attrByteOffset)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove index file: %w", err)
	}
	return nil
}

// CloseAll closes every cached index.
// Called when shutting down the storage engine.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var errs []error
	for name, tree := range ifm.indexes {
		if err := tree.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index %s: %w", name, err))
		}
		delete(ifm.indexes, name)
	}
	return errors.Join(errs...)
}

// OpenNames lists the cached index names, for logging.
func (ifm *IndexFileManager) OpenNames() string {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()

	names := make([]string, 0, len(ifm.indexes))
	for name := range ifm.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
