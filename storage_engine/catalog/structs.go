package catalog

import (
	"IdxDB/types"
	"sync"
)

type CatalogManager struct {
	dataDir    string
	relations  map[string]RelationEntry
	nextFileID uint32
	mu         sync.RWMutex
}

// RelationEntry maps a relation to the files that hold it.
type RelationEntry struct {
	HeapFileID uint32                `json:"heap_file_id"`
	Indexes    map[string]IndexEntry `json:"indexes"` // index name (relation.offset) → index
}

type IndexEntry struct {
	FileID         uint32         `json:"file_id"`
	AttrByteOffset int32          `json:"attr_byte_offset"`
	AttrType       types.Datatype `json:"attr_type"`
}

// catalogFile is the on-disk form of the catalog.
type catalogFile struct {
	NextFileID uint32                   `json:"next_file_id"`
	Relations  map[string]RelationEntry `json:"relations"`
}
