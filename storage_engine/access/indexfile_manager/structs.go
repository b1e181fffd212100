package indexfile

import (
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"sync"
)

type IndexFileManager struct {
	baseDir     string                      // e.g., /data/indexes
	indexes     map[string]*bplus.BPlusTree // index name (relation.offset) → open tree
	bufferPool  *bufferpool.BufferPool      // shared with heap files
	diskManager *diskmanager.DiskManager    // shared with heap files
	opts        bplus.Options
	mu          sync.RWMutex
}
