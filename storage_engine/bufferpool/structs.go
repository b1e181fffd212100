package bufferpool

import (
	"IdxDB/internal/metrics"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/storage_engine/page"
	"sync"

	"github.com/rs/zerolog"
)

// ############################################# BUFFER POOL #############################################

// BufferPool manages cached pages in memory with LRU eviction
// Works with both heap file pages and B+ tree index pages
type BufferPool struct {
	pages       map[int64]*page.Page // pageID -> Page
	capacity    int
	diskManager *diskmanager.DiskManager
	accessOrder []int64 // LRU tracking: most recently used at end

	hits   uint64
	misses uint64
	pins   uint64 // FetchPage + NewPage calls that returned a page
	unpins uint64 // successful UnpinPage calls

	log     zerolog.Logger
	metrics *metrics.Metrics
	mu      sync.Mutex
}

// BufferPoolStats is a point-in-time view of the pool
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	HitRate     float64
}

// PinStats counts pin traffic since the pool was created.
// Every pin must be matched by exactly one unpin, so Pins == Unpins whenever
// no caller holds a page.
type PinStats struct {
	Pins   uint64
	Unpins uint64
}

func (s PinStats) Outstanding() int64 {
	return int64(s.Pins) - int64(s.Unpins)
}
