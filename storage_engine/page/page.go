package page

import (
	"IdxDB/types"
	"sync"
)

const (
	PageSize       = types.PageSize
	PageTypeOffset = 8 // byte 8 of every page carries its PageType
)

/*
This contains the page frame shared by every access method.
The frame only carries identity, pin state and the raw bytes; the layout of
those bytes is owned by the access method that wrote them:
for heap page: storage_engine/access/heapfile_manager/heap_page.go
for index page: storage_engine/access/indexfile_manager/bplustree/node_layout.go

Page identifiers are global: the upper 32 bits are the file id, the lower 32
bits the page number inside that file. Access methods store only the local
number on disk so files stay valid whatever id they are opened under.
*/

type Page struct {
	ID       int64
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PinCount int32
	PageType types.PageType
	mu       sync.RWMutex
}

func New(pageID int64, fileID uint32, pageType types.PageType) *Page {
	return &Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, PageSize),
		PageType: pageType,
	}
}

// GlobalID builds the pool-wide identifier of a page inside a file.
func GlobalID(fileID uint32, local uint32) int64 {
	return int64(fileID)<<32 | int64(local)
}

// LocalNum is the page number inside its file.
func LocalNum(globalID int64) uint32 {
	return uint32(globalID & 0xFFFFFFFF)
}

// FileOf is the file a global page id belongs to.
func FileOf(globalID int64) uint32 {
	return uint32(globalID >> 32)
}

func (p *Page) Local() uint32 {
	return LocalNum(p.ID)
}

func (p *Page) Lock() {
	p.mu.Lock()
}

func (p *Page) Unlock() {
	p.mu.Unlock()
}

func (p *Page) RLock() {
	p.mu.RLock()
}

func (p *Page) RUnlock() {
	p.mu.RUnlock()
}
