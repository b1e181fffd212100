// Structure of B+ Tree
/*
Tree
 ├── Internal Node (separator keys + child page links, level, parent)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (keys + record ids, parent, right sibling)

- keys: int32, sorted ascending, duplicates allowed
- internal nodes: children == keys+1, child[i] < key[i] <= child[i+1] (right-biased)
- leaf nodes linked left to right through the right-sibling link
- all leaf nodes at same depth
- page 0 of the file is the metadata page; the root is found only through it
*/
package bplus

import (
	"IdxDB/internal/logger"
	"IdxDB/internal/metrics"
	"IdxDB/storage_engine/page"
	"IdxDB/types"
)

// PageStore is the buffer manager the tree runs on. Every page returned by
// NewPage or FetchPage is pinned and must be unpinned exactly once.
type PageStore interface {
	NewPage(fileID uint32, pageType types.PageType) (*page.Page, error)
	FetchPage(pageID int64) (*page.Page, error)
	UnpinPage(pageID int64, isDirty bool) error
	FlushPage(pageID int64) error
	FlushFile(fileID uint32) error
}

// FileOpener owns the index file handle.
type FileOpener interface {
	OpenFileWithID(filePath string, fileID uint32) (uint32, error)
	NumPages(fileID uint32) (int64, error)
	SyncFile(fileID uint32) error
	CloseFile(fileID uint32) error
}

// RecordScanner feeds the bulk load of a new index. Next returns
// types.ErrEndOfRelation after the last record.
type RecordScanner interface {
	Next() (types.RecordID, []byte, error)
}

// IndexRequest names the index to open or build.
type IndexRequest struct {
	Dir            string // directory holding index files
	FileID         uint32 // id the file is registered under in the page store
	RelationName   string
	AttrByteOffset int32
	AttrType       types.Datatype
}

// Options tune a new index. Capacities of an existing index come from its
// metadata page.
type Options struct {
	LeafCapacity int // 0 = MaxLeafCapacity
	NodeCapacity int // 0 = MaxNodeCapacity
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

type scanState uint8

const (
	scanIdle scanState = iota
	scanActive
	scanExhausted
)

// scanCursor is the position of the single range scan a tree can run.
type scanCursor struct {
	state    scanState
	leaf     *page.Page // pinned while active, nil otherwise
	offset   int
	low      int32
	lowOp    types.Operator
	high     int32
	highOp   types.Operator
	returned int
}

type BPlusTree struct {
	name    string // relation.offset
	path    string
	fileID  uint32
	store   PageStore
	files   FileOpener
	meta    indexMeta // cached copy of page 0
	leafCap int
	nodeCap int
	scan    scanCursor
	closed  bool
	log     *logger.Logger
	metrics *metrics.Metrics
}
