package heapfile

import (
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/storage_engine/page"
	"IdxDB/types"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

/*
This file is the start of the heapfile manager
This is responsible for creation of heapfiles, which is ultimately initialization of heap pages

Heapfile manager knows the Disk Manager for file related operations like OpenFileWithID, CloseFile
and it also knows the Buffer Pool to add the created/accessed pages to the cache.
Each relation has exactly one heap file: <baseDir>/<relation>.heap
*/

var (
	ErrRelationExists   = errors.New("relation already exists")
	ErrRelationNotFound = errors.New("relation not found")
)

// NewHeapFileManager creates a new heap file manager
func NewHeapFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*HeapFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create heap directory: %w", err)
	}
	return &HeapFileManager{
		baseDir:     baseDir,
		files:       make(map[string]*HeapFile),
		diskManager: diskManager,
		bufferPool:  bufferPool,
		log:         zerolog.Nop(),
	}, nil
}

func (hfm *HeapFileManager) SetLogger(log zerolog.Logger) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()
	hfm.log = log
}

// ValidateRelationName rejects names that cannot be used as a file name.
func ValidateRelationName(relation string) error {
	if relation == "" {
		return fmt.Errorf("relation name must not be empty")
	}
	if strings.ContainsAny(relation, `/\.`) || strings.ContainsRune(relation, 0) {
		return fmt.Errorf("relation name %q contains a path separator or dot", relation)
	}
	return nil
}

// HeapPath is where the heap file of a relation lives.
func (hfm *HeapFileManager) HeapPath(relation string) string {
	return filepath.Join(hfm.baseDir, relation+".heap")
}

// Chain of command this function drives:
//  1. DiskManager.OpenFileWithID → creates the OS file under the catalog's fileID
//  2. BufferPool.NewPage          → allocates page 0 (RAM only, dirty)
//  3. heapPage.format             → writes header fields into the in-RAM buffer
//  4. BufferPool.UnpinPage        → the pool may flush it when it needs space
func (hfm *HeapFileManager) CreateHeapFile(relation string, fileID uint32) (*HeapFile, error) {
	if err := ValidateRelationName(relation); err != nil {
		return nil, err
	}

	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if _, exists := hfm.files[relation]; exists {
		return nil, fmt.Errorf("CreateHeapFile %s: %w", relation, ErrRelationExists)
	}

	heapPath := hfm.HeapPath(relation)
	if _, err := os.Stat(heapPath); err == nil {
		return nil, fmt.Errorf("CreateHeapFile %s: %s: %w", relation, heapPath, ErrRelationExists)
	}

	if _, err := hfm.diskManager.OpenFileWithID(heapPath, fileID); err != nil {
		return nil, fmt.Errorf("failed to create heapfile: %w", err)
	}

	pg, err := hfm.bufferPool.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, fmt.Errorf("buffer pool failed to allocate first page: %w", err)
	}
	heapPage{pg}.format(pg.Local())
	if err := hfm.bufferPool.UnpinPage(pg.ID, true); err != nil {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, fmt.Errorf("failed to unpin first heap page: %w", err)
	}

	hf := hfm.newHeapFile(relation, heapPath, fileID, pg.Local())
	hfm.files[relation] = hf

	hfm.log.Info().Str("relation", relation).Uint32("file_id", fileID).Msg("heap file created")
	return hf, nil
}

// OpenHeapFile opens an existing heap file, or returns the cached handle.
func (hfm *HeapFileManager) OpenHeapFile(relation string, fileID uint32) (*HeapFile, error) {
	if err := ValidateRelationName(relation); err != nil {
		return nil, err
	}

	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if hf, exists := hfm.files[relation]; exists {
		return hf, nil
	}

	heapPath := hfm.HeapPath(relation)
	if _, err := os.Stat(heapPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("OpenHeapFile %s: %w", relation, ErrRelationNotFound)
	}

	if _, err := hfm.diskManager.OpenFileWithID(heapPath, fileID); err != nil {
		return nil, fmt.Errorf("failed to open heap file: %w", err)
	}

	numPages, err := hfm.diskManager.NumPages(fileID)
	if err != nil {
		return nil, err
	}
	if numPages == 0 {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, fmt.Errorf("OpenHeapFile %s: heap file has no pages", relation)
	}

	hf := hfm.newHeapFile(relation, heapPath, fileID, uint32(numPages-1))
	hfm.files[relation] = hf

	hfm.log.Debug().Str("relation", relation).Int64("pages", numPages).Msg("heap file opened")
	return hf, nil
}

func (hfm *HeapFileManager) newHeapFile(relation, path string, fileID, lastPage uint32) *HeapFile {
	return &HeapFile{
		fileID:      fileID,
		relation:    relation,
		filePath:    path,
		lastPage:    lastPage,
		diskManager: hfm.diskManager,
		bufferPool:  hfm.bufferPool,
		log:         hfm.log.With().Str("relation", relation).Logger(),
	}
}

func (hfm *HeapFileManager) GetHeapFile(relation string) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	hf, exists := hfm.files[relation]
	if !exists {
		return nil, fmt.Errorf("no heap file open for relation '%s': %w", relation, ErrRelationNotFound)
	}
	return hf, nil
}

// CloseHeapFile flushes the relation's pages and releases its file handle.
func (hfm *HeapFileManager) CloseHeapFile(relation string) error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	hf, exists := hfm.files[relation]
	if !exists {
		return nil
	}
	delete(hfm.files, relation)
	return hf.close()
}

// CloseAll closes every open heap file and returns the joined errors.
func (hfm *HeapFileManager) CloseAll() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	var errs []error
	for relation, hf := range hfm.files {
		if err := hf.close(); err != nil {
			errs = append(errs, fmt.Errorf("close heap file '%s': %w", relation, err))
		}
		delete(hfm.files, relation)
	}
	return errors.Join(errs...)
}

func (hf *HeapFile) close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.bufferPool.FlushFile(hf.fileID); err != nil {
		return err
	}
	return hf.diskManager.CloseFile(hf.fileID)
}

func (hf *HeapFile) pageID(pageNo uint32) int64 {
	return page.GlobalID(hf.fileID, pageNo)
}
