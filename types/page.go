package types

const (
	PageSize           = 4096 // 4KB page
	HeapPageHeaderSize = 16
	SlotSize           = 4 // 4 bytes per slot entry (offset: 2B, length: 2B)
)

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeHeapData
	PageTypeBPlusNode
	PageTypeMetadata
)

func (pt PageType) String() string {
	switch pt {
	case PageTypeHeapData:
		return "heap"
	case PageTypeBPlusNode:
		return "bplus-node"
	case PageTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}
