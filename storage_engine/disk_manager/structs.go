package diskmanager

import (
	"IdxDB/internal/metrics"
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next available page number within this file
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager manages all disk I/O operations and file handles
type DiskManager struct {
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID uint32                     // used by OpenFile; catalog-owned files use OpenFileWithID

	// page images keyed by global page id; nil when disabled
	cache      *ristretto.Cache[int64, []byte]
	cacheBytes int64

	log     zerolog.Logger
	metrics *metrics.Metrics
	mu      sync.RWMutex
}

// CacheStats reports the page image cache counters.
type CacheStats struct {
	Enabled  bool
	MaxBytes int64
	Hits     uint64
	Misses   uint64
	HitRatio float64
}
