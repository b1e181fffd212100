package heapfile

import (
	"IdxDB/storage_engine/bufferpool"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"IdxDB/storage_engine/page"
	"sync"

	"github.com/rs/zerolog"
)

// Slot represents an entry in the slot directory at the bottom of the page
// Stored at the end of the page, grows backward
type Slot struct {
	Offset uint16 // Offset from start of page to record data
	Length uint16 // Length of the record data
}

// HeapFile is the tuple store of one relation
type HeapFile struct {
	fileID      uint32
	relation    string
	filePath    string
	lastPage    uint32 // inserts go here first
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	log         zerolog.Logger
	mu          sync.RWMutex
}

// HeapFileManager manages the heap files of every open relation
type HeapFileManager struct {
	baseDir     string
	files       map[string]*HeapFile // relation -> heap file
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	log         zerolog.Logger
	mu          sync.RWMutex
}

// FileScan walks every record of a heap file in physical order.
// At most one page is pinned at a time.
type FileScan struct {
	hf       *HeapFile
	numPages uint32
	pageNo   uint32
	slot     uint16
	pg       *page.Page // pinned current page, nil between pages
	done     bool
}
