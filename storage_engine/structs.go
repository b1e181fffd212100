package storageengine

import (
	"IdxDB/internal/config"
	"IdxDB/internal/logger"
	"IdxDB/internal/metrics"
	heapfile "IdxDB/storage_engine/access/heapfile_manager"
	indexfile "IdxDB/storage_engine/access/indexfile_manager"
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/storage_engine/bufferpool"
	"IdxDB/storage_engine/catalog"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/types"
	"sync"
)

type StorageEngine struct {
	BufferPool     *bufferpool.BufferPool
	DiskManager    *diskmanager.DiskManager
	CatalogManager *catalog.CatalogManager
	IndexManager   *indexfile.IndexFileManager
	HeapManager    *heapfile.HeapFileManager

	Log     *logger.Logger
	Metrics *metrics.Metrics

	cfg    config.Config
	closed bool
	mu     sync.Mutex // one tree operation at a time
}

// Tuple is one result row of a range query.
type Tuple struct {
	Key  int32
	RID  types.RecordID
	Data []byte
}

// EngineStats is a snapshot of the engine for tools and logs.
type EngineStats struct {
	BufferPool bufferpool.BufferPoolStats
	Pins       bufferpool.PinStats
	PageCache  diskmanager.CacheStats
	DiskPages  int64 // pages allocated across every open file
	Relations  int
	Indexes    map[string]bplus.TreeStats // by index name
}
