package bplus

import "errors"

var (
	// ErrBadIndexInfo: an existing index file was built for a different relation, attribute or type.
	ErrBadIndexInfo = errors.New("bplus: index file metadata does not match the requested index")

	// ErrBadOpcodes: the low operator must be GT or GTE and the high operator LT or LTE.
	ErrBadOpcodes = errors.New("bplus: bad scan operators")

	// ErrBadScanrange: the low bound is greater than the high bound.
	ErrBadScanrange = errors.New("bplus: scan low bound exceeds high bound")

	// ErrScanNotInitialized: ScanNext or EndScan without an active scan.
	ErrScanNotInitialized = errors.New("bplus: no scan in progress")

	// ErrIndexScanCompleted: the scan has returned every matching entry.
	ErrIndexScanCompleted = errors.New("bplus: index scan completed")

	ErrUnsupportedKeyType  = errors.New("bplus: only INTEGER attributes can be indexed")
	ErrRelationNameTooLong = errors.New("bplus: relation name too long")
	ErrCorruptIndex        = errors.New("bplus: corrupt index")
	ErrClosed              = errors.New("bplus: index is closed")
)
