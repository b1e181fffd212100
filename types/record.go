package types

import (
	"errors"
	"fmt"
)

// ErrEndOfRelation is returned by a record scan once every tuple has been read.
// It terminates a scan normally and is not a failure.
var ErrEndOfRelation = errors.New("end of relation")

// RecordID points to a specific tuple in a heap file.
// The index stores it verbatim and never interprets it.
type RecordID struct {
	PageNumber uint32 `json:"page_number"`
	SlotIndex  uint16 `json:"slot_index"` // Index in the slot directory
}

func (r RecordID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageNumber, r.SlotIndex)
}
