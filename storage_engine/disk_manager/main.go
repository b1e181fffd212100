package diskmanager

import (
	"IdxDB/internal/metrics"
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

/*
This is main file for disk manager
It owns:
File descriptors (os.File)
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
Page allocation (tracking NextPageID per file)
A read-through cache of page images (ristretto) in front of ReadAt

Page ID encoding:
globalPageID = int64(fileID) << 32 | localPageNum
The file id is recovered from the page id itself, so no lookup tables are
needed and ids are stable across restarts as long as a file is reopened under
the same id (the catalog guarantees this for heap and index files).

The buffer pool serves hits; on a miss it is the disk manager that reads the
page from the cache or from the file at localPageNum * PageSize.
*/

var (
	ErrFileNotOpen     = errors.New("file not open")
	ErrPageOutOfBounds = errors.New("page not allocated")
)

// NewDiskManager creates a disk manager. cacheBytes bounds the page image
// cache; zero disables it.
func NewDiskManager(cacheBytes int64) (*DiskManager, error) {
	dm := &DiskManager{
		files:      make(map[uint32]*FileDescriptor),
		nextFileID: 1,
		cacheBytes: cacheBytes,
		log:        zerolog.Nop(),
		metrics:    metrics.Default(),
	}

	if cacheBytes > 0 {
		pages := cacheBytes / page.PageSize
		if pages < 1 {
			pages = 1
		}
		cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
			NumCounters:        pages * 10,
			MaxCost:            cacheBytes,
			BufferItems:        64,
			Metrics:            true,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create page cache: %w", err)
		}
		dm.cache = cache
	}

	return dm, nil
}

func (dm *DiskManager) SetLogger(log zerolog.Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.log = log
	dm.log.Debug().
		Str("page_cache", humanize.IBytes(uint64(dm.cacheBytes))).
		Msg("disk manager ready")
}

func (dm *DiskManager) SetMetrics(m *metrics.Metrics) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.metrics = m
}

/*
Why two OpenFile variants:
OpenFileWithID: heap and index files, ids are handed out by the catalog (stable across restarts)
OpenFile: scratch files whose id only has to be unique for this session
*/
func (dm *DiskManager) OpenFileWithID(filePath string, fileID uint32) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if fd, exists := dm.files[fileID]; exists {
		if fd.FilePath == filePath {
			return fileID, nil
		}
		return 0, fmt.Errorf("file id %d already used by %s", fileID, fd.FilePath)
	}

	if err := dm.openLocked(filePath, fileID); err != nil {
		return 0, err
	}
	if fileID >= dm.nextFileID {
		dm.nextFileID = fileID + 1
	}
	return fileID, nil
}

// OpenFile opens or creates a file and returns a session-scoped file ID
func (dm *DiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}

	fileID := dm.nextFileID
	if err := dm.openLocked(filePath, fileID); err != nil {
		return 0, err
	}
	dm.nextFileID++
	return fileID, nil
}

// openLocked assumes dm.mu is held
func (dm *DiskManager) openLocked(filePath string, fileID uint32) error {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}

	numPages := (stat.Size() + page.PageSize - 1) / page.PageSize

	dm.files[fileID] = &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageID: numPages,
	}

	dm.log.Debug().
		Str("path", filePath).
		Uint32("file_id", fileID).
		Int64("pages", numPages).
		Str("size", humanize.IBytes(uint64(stat.Size()))).
		Msg("file opened")
	return nil
}

func (dm *DiskManager) descriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("file %d: %w", fileID, ErrFileNotOpen)
	}
	return fd, nil
}

// ReadPage reads a page from the cache or from disk.
// Pages that were allocated but never written come back zeroed.
func (dm *DiskManager) ReadPage(globalPageID int64) (*page.Page, error) {
	fileID := page.FileOf(globalPageID)
	localPageID := int64(page.LocalNum(globalPageID))

	fd, err := dm.descriptor(fileID)
	if err != nil {
		return nil, fmt.Errorf("ReadPage %d: %w", globalPageID, err)
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, fmt.Errorf("ReadPage %d: file %d: %w", globalPageID, fileID, ErrFileNotOpen)
	}
	if localPageID >= fd.NextPageID {
		return nil, fmt.Errorf("ReadPage: page %d of file %d (next %d): %w",
			localPageID, fileID, fd.NextPageID, ErrPageOutOfBounds)
	}

	pg := page.New(globalPageID, fileID, types.PageTypeUnknown)

	if dm.cache != nil {
		if img, ok := dm.cache.Get(globalPageID); ok && len(img) == page.PageSize {
			copy(pg.Data, img)
			pg.PageType = types.PageType(pg.Data[page.PageTypeOffset])
			dm.metrics.PageCacheHits.Inc()
			return pg, nil
		}
		dm.metrics.PageCacheMisses.Inc()
	}

	offset := localPageID * page.PageSize
	n, err := fd.File.ReadAt(pg.Data, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read page %d from file %d: %w", localPageID, fileID, err)
	}

	// Pad with zeros if partial read
	for i := n; i < page.PageSize; i++ {
		pg.Data[i] = 0
	}
	dm.metrics.DiskReads.Inc()

	pg.PageType = types.PageType(pg.Data[page.PageTypeOffset])

	if dm.cache != nil && n == page.PageSize {
		img := make([]byte, page.PageSize)
		copy(img, pg.Data)
		dm.cache.Set(globalPageID, img, page.PageSize)
	}

	return pg, nil
}

// WritePage writes a page to disk
func (dm *DiskManager) WritePage(pg *page.Page) error {
	fd, err := dm.descriptor(pg.FileID)
	if err != nil {
		return fmt.Errorf("WritePage %d: %w", pg.ID, err)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return fmt.Errorf("WritePage %d: file %d: %w", pg.ID, pg.FileID, ErrFileNotOpen)
	}

	if len(pg.Data) != page.PageSize {
		return fmt.Errorf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}

	// Mark page type in its reserved byte
	pg.Data[page.PageTypeOffset] = byte(pg.PageType)

	localPageID := int64(page.LocalNum(pg.ID))
	offset := localPageID * page.PageSize

	if _, err := fd.File.WriteAt(pg.Data, offset); err != nil {
		return fmt.Errorf("failed to write page %d to file %d: %w", localPageID, pg.FileID, err)
	}

	// a cached image is stale now; the next read refills it
	if dm.cache != nil {
		dm.cache.Del(pg.ID)
	}

	if localPageID >= fd.NextPageID {
		fd.NextPageID = localPageID + 1
	}

	dm.metrics.DiskWrites.Inc()
	dm.metrics.DiskBytesWritten.Add(page.PageSize)

	pg.IsDirty = false
	return nil
}

// AllocatePage reserves the next available page number for a file and returns
// its global id. It does NOT write anything to disk; that is the
// BufferPool's responsibility when it later flushes the dirty page.
func (dm *DiskManager) AllocatePage(fileID uint32, pageType types.PageType) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, fmt.Errorf("AllocatePage: %w", err)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, fmt.Errorf("AllocatePage: file %d: %w", fileID, ErrFileNotOpen)
	}
	if fd.NextPageID > 0xFFFFFFFF {
		return 0, fmt.Errorf("AllocatePage: file %d is out of page numbers", fileID)
	}

	local := uint32(fd.NextPageID)
	fd.NextPageID++

	dm.log.Trace().
		Uint32("file_id", fileID).
		Uint32("page", local).
		Stringer("type", pageType).
		Msg("page allocated")

	return page.GlobalID(fileID, local), nil
}

// NumPages returns how many pages the file holds, including allocated pages
// that have not been written yet.
func (dm *DiskManager) NumPages(fileID uint32) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID, nil
}

// Sync flushes all file buffers to disk
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	for _, fd := range dm.files {
		if err := syncDescriptor(fd); err != nil {
			return err
		}
	}
	return nil
}

// SyncFile flushes one file's buffers to disk
func (dm *DiskManager) SyncFile(fileID uint32) error {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return err
	}
	return syncDescriptor(fd)
}

func syncDescriptor(fd *FileDescriptor) error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.File == nil {
		return nil
	}
	if err := fd.File.Sync(); err != nil {
		return fmt.Errorf("failed to sync file %d: %w", fd.FileID, err)
	}
	return nil
}

// CloseFile syncs and closes a specific file
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return fmt.Errorf("CloseFile %d: %w", fileID, ErrFileNotOpen)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	delete(dm.files, fileID)
	// the id may be reused for another file, drop every image
	if dm.cache != nil {
		dm.cache.Clear()
	}

	if fd.File == nil {
		return nil // Already closed
	}

	if err := fd.File.Sync(); err != nil {
		return fmt.Errorf("failed to sync before close: %w", err)
	}
	if err := fd.File.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	fd.File = nil

	dm.log.Debug().Str("path", fd.FilePath).Uint32("file_id", fileID).Msg("file closed")
	return nil
}

// CloseAll closes all open files and the page cache
func (dm *DiskManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var errs []error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				errs = append(errs, err)
			}
			if err := fd.File.Close(); err != nil {
				errs = append(errs, err)
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
	}

	if dm.cache != nil {
		dm.cache.Close()
		dm.cache = nil
	}

	return errors.Join(errs...)
}

// CacheMetrics reports the page image cache counters.
func (dm *DiskManager) CacheMetrics() CacheStats {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.cache == nil || dm.cache.Metrics == nil {
		return CacheStats{}
	}
	return CacheStats{
		Enabled:  true,
		MaxBytes: dm.cacheBytes,
		Hits:     dm.cache.Metrics.Hits(),
		Misses:   dm.cache.Metrics.Misses(),
		HitRatio: dm.cache.Metrics.Ratio(),
	}
}

// TotalPages returns the total number of pages across all open files
func (dm *DiskManager) TotalPages() int64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	total := int64(0)
	for _, fd := range dm.files {
		fd.mu.RLock()
		total += fd.NextPageID
		fd.mu.RUnlock()
	}
	return total
}
