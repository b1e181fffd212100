package bufferpool

import (
	"IdxDB/internal/metrics"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching mechanism
and holds access to disk manager for flushing the pages in the cache onto the disk
similarly if page not found in the cache, disk manager loads the page from the disk and adds in the cache for future access

Pages are identified by globalPageID
Every FetchPage/NewPage pins the page; the caller owns that pin until the
matching UnpinPage. Only unpinned pages can be evicted.
*/

var (
	ErrPageNotPinned = errors.New("page is not pinned")
	ErrPagePinned    = errors.New("page is pinned")
	ErrNoFreeFrame   = errors.New("all pages are pinned, cannot evict")
	ErrPageNotInPool = errors.New("page not in buffer pool")
	ErrNoDiskManager = errors.New("disk manager not set")
)

// NewBufferPool creates a new buffer pool with the given capacity
func NewBufferPool(capacity int, diskManager *diskmanager.DiskManager) *BufferPool {
	return &BufferPool{
		pages:       make(map[int64]*page.Page, capacity),
		capacity:    capacity,
		diskManager: diskManager,
		accessOrder: make([]int64, 0, capacity),
		log:         zerolog.Nop(),
		metrics:     metrics.Default(),
	}
}

func (bp *BufferPool) SetLogger(log zerolog.Logger) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.log = log
}

func (bp *BufferPool) SetMetrics(m *metrics.Metrics) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.metrics = m
}

// FetchPage retrieves a page from the buffer pool, loading from disk if necessary
// Returns the page with pin count incremented
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.pages[pageID]; exists {
		bp.hits++
		bp.metrics.BufferPoolHits.Inc()
		bp.updateAccessOrder(pageID)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		bp.pins++
		return pg, nil
	}

	bp.misses++
	bp.metrics.BufferPoolMisses.Inc()

	if bp.diskManager == nil {
		return nil, ErrNoDiskManager
	}

	// Make room before reading so a full pool fails without touching disk.
	if err := bp.reserveFrame(); err != nil {
		return nil, fmt.Errorf("FetchPage %d: %w", pageID, err)
	}

	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}

	pg.PinCount = 1
	bp.pages[pageID] = pg
	bp.updateAccessOrder(pageID)
	bp.pins++

	return pg, nil
}

// NewPage asks the DiskManager for the next available page ID for the given
// file, constructs a blank Page entirely in RAM, marks it dirty so
// the BufferPool will eventually flush it, and pins it for the caller.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return nil, ErrNoDiskManager
	}

	// Evict first so a failed allocation does not leave a hole in the file.
	if err := bp.reserveFrame(); err != nil {
		return nil, fmt.Errorf("NewPage: %w", err)
	}

	pageID, err := bp.diskManager.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := page.New(pageID, fileID, pageType)
	pg.Data[page.PageTypeOffset] = byte(pageType)
	pg.IsDirty = true // New pages are dirty by default
	pg.PinCount = 1

	bp.pages[pageID] = pg
	bp.updateAccessOrder(pageID)
	bp.pins++

	return pg, nil
}

// UnpinPage decrements the pin count for a page.
// Unpinning a page nobody holds is a caller bug and is reported, not absorbed.
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("UnpinPage %d: %w", pageID, ErrPageNotInPool)
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount <= 0 {
		return fmt.Errorf("UnpinPage %d: %w", pageID, ErrPageNotPinned)
	}
	pg.PinCount--
	bp.unpins++

	if isDirty {
		pg.IsDirty = true
	}

	return nil
}

// FlushPage writes a specific page to disk if dirty
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("FlushPage %d: %w", pageID, ErrPageNotInPool)
	}

	pg.Lock()
	defer pg.Unlock()
	return bp.writeBack(pg)
}

// FlushFile writes every dirty page of one file and drops the file's pages
// from the pool. It refuses to run while any page of the file is pinned so
// that a caller leaking a pin finds out here instead of after eviction.
func (bp *BufferPool) FlushFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return ErrNoDiskManager
	}

	var owned []*page.Page
	for _, pg := range bp.pages {
		if pg.FileID != fileID {
			continue
		}
		pg.RLock()
		pinned := pg.PinCount > 0
		pg.RUnlock()
		if pinned {
			return fmt.Errorf("FlushFile %d: page %d: %w", fileID, page.LocalNum(pg.ID), ErrPagePinned)
		}
		owned = append(owned, pg)
	}

	for _, pg := range owned {
		pg.Lock()
		err := bp.writeBack(pg)
		pg.Unlock()
		if err != nil {
			return fmt.Errorf("FlushFile %d: %w", fileID, err)
		}
	}
	for _, pg := range owned {
		bp.dropLocked(pg.ID)
	}

	bp.log.Debug().Uint32("file_id", fileID).Int("pages", len(owned)).Msg("file flushed")
	return nil
}

// FlushAllPages writes all dirty pages to disk. Pages stay cached.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return ErrNoDiskManager
	}

	for _, pg := range bp.pages {
		pg.Lock()
		err := bp.writeBack(pg)
		pg.Unlock()
		if err != nil {
			return err
		}
	}

	return nil
}

// writeBack assumes bp.mu and the page lock are held
func (bp *BufferPool) writeBack(pg *page.Page) error {
	if !pg.IsDirty {
		return nil
	}
	if err := bp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pg.ID, err)
	}
	pg.IsDirty = false
	bp.metrics.BufferPoolFlushes.Inc()
	return nil
}

// reserveFrame evicts the LRU page if the pool is full
// Assumes lock is already held
func (bp *BufferPool) reserveFrame() error {
	if len(bp.pages) < bp.capacity {
		return nil
	}
	return bp.evictLRU()
}

// evictLRU evicts the least recently used unpinned page
// Assumes lock is already held
func (bp *BufferPool) evictLRU() error {
	for i := 0; i < len(bp.accessOrder); i++ {
		pageID := bp.accessOrder[i]
		pg, exists := bp.pages[pageID]

		if !exists {
			// Remove from access order if page doesn't exist
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}

		pg.Lock()
		if pg.PinCount > 0 {
			pg.Unlock()
			continue
		}

		dirty := pg.IsDirty
		if err := bp.writeBack(pg); err != nil {
			pg.Unlock()
			return fmt.Errorf("failed to write page %d during eviction: %w", pageID, err)
		}
		pg.Unlock()

		delete(bp.pages, pageID)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		bp.metrics.BufferPoolEvictions.Inc()
		bp.log.Debug().Int64("page_id", pageID).Bool("dirty", dirty).Msg("evict")
		return nil
	}

	return ErrNoFreeFrame
}

// updateAccessOrder moves a page to the end of access order (most recently used)
// Assumes lock is already held
func (bp *BufferPool) updateAccessOrder(pageID int64) {
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, pageID)
}

// dropLocked removes a page from the pool without writing it
// Assumes lock is already held
func (bp *BufferPool) dropLocked(pageID int64) {
	delete(bp.pages, pageID)
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
}
