package bplus

import (
	"IdxDB/internal/logger"
	"IdxDB/internal/metrics"
	"IdxDB/types"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// IndexName is the file name of the index on attrByteOffset of relation.
func IndexName(relation string, attrByteOffset int32) string {
	return relation + "." + strconv.Itoa(int(attrByteOffset))
}

// Open opens the index described by req, building it when its file does not
// exist yet.
//
// An existing file must have been built for the same relation, attribute
// offset and type, otherwise ErrBadIndexInfo. A new file gets a metadata page
// and an empty root leaf, is bulk loaded from scanner (which may be nil for an
// empty relation), and is flushed before Open returns.
func Open(req IndexRequest, store PageStore, files FileOpener, scanner RecordScanner, opts Options) (*BPlusTree, error) {
	name := IndexName(req.RelationName, req.AttrByteOffset)
	path := filepath.Join(req.Dir, name)

	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}

	t := &BPlusTree{
		name:    name,
		path:    path,
		fileID:  req.FileID,
		store:   store,
		files:   files,
		log:     opts.Logger.IndexLogger(name),
		metrics: opts.Metrics,
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	if isNew {
		if err := validateNew(req); err != nil {
			return nil, fmt.Errorf("Open %s: %w", name, err)
		}
	}

	if _, err := files.OpenFileWithID(path, req.FileID); err != nil {
		return nil, fmt.Errorf("Open %s: failed to open index file: %w", name, err)
	}

	if !isNew {
		// a file left empty by an interrupted build is rebuilt
		if n, err := files.NumPages(req.FileID); err == nil && n == 0 {
			if err := validateNew(req); err != nil {
				_ = files.CloseFile(req.FileID)
				return nil, fmt.Errorf("Open %s: %w", name, err)
			}
			isNew = true
		}
	}

	if isNew {
		start := time.Now()
		loaded := 0
		err := t.create(req, opts)
		if err == nil {
			loaded, err = t.bulkLoad(scanner, req.AttrByteOffset)
		}
		if err == nil {
			err = t.flush()
		}
		t.log.LogIndexOperation("build", time.Since(start), loaded, err)
		if err != nil {
			t.abandon()
			_ = os.Remove(path)
			return nil, fmt.Errorf("Open %s: build failed: %w", name, err)
		}
		t.metrics.IndexOpenTotal.WithLabelValues("create").Inc()
		return t, nil
	}

	if err := t.loadMeta(); err != nil {
		t.abandon()
		return nil, fmt.Errorf("Open %s: %w", name, err)
	}
	if !t.meta.matches(req) {
		t.abandon()
		return nil, fmt.Errorf("Open %s: stored (%s, %d, %s), requested (%s, %d, %s): %w",
			name, t.meta.relationName, t.meta.attrByteOffset, t.meta.attrType,
			req.RelationName, req.AttrByteOffset, req.AttrType, ErrBadIndexInfo)
	}
	t.leafCap = int(t.meta.leafCap)
	t.nodeCap = int(t.meta.nodeCap)

	t.metrics.IndexOpenTotal.WithLabelValues("reopen").Inc()
	zl := t.log.GetZerolog()
	zl.Debug().
		Uint32("root", t.meta.root).
		Bool("root_is_leaf", t.meta.rootIsLeaf).
		Int("leaf_cap", t.leafCap).
		Int("node_cap", t.nodeCap).
		Msg("index opened")
	return t, nil
}

func validateNew(req IndexRequest) error {
	if req.AttrType != types.INTEGER {
		return fmt.Errorf("attribute type %s: %w", req.AttrType, ErrUnsupportedKeyType)
	}
	if len(req.RelationName) > MaxRelationNameLen {
		return fmt.Errorf("%q: %w", req.RelationName, ErrRelationNameTooLong)
	}
	if req.AttrByteOffset < 0 {
		return fmt.Errorf("negative attribute offset %d", req.AttrByteOffset)
	}
	return nil
}

func resolveCapacity(requested, max int, what string) (int, error) {
	if requested == 0 {
		return max, nil
	}
	if requested < MinCapacity || requested > max {
		return 0, fmt.Errorf("%s capacity %d outside [%d, %d]", what, requested, MinCapacity, max)
	}
	return requested, nil
}

// create writes the metadata page (local 0) and the empty root leaf (local 1).
func (t *BPlusTree) create(req IndexRequest, opts Options) (err error) {
	if t.leafCap, err = resolveCapacity(opts.LeafCapacity, MaxLeafCapacity, "leaf"); err != nil {
		return err
	}
	if t.nodeCap, err = resolveCapacity(opts.NodeCapacity, MaxNodeCapacity, "node"); err != nil {
		return err
	}

	metaG, err := t.allocate()
	if err != nil {
		return fmt.Errorf("create: metadata page: %w", err)
	}
	defer metaG.done(&err)
	if metaG.local() != metaPageNo {
		return fmt.Errorf("create: %w: metadata landed on page %d", ErrCorruptIndex, metaG.local())
	}

	rootG, err := t.allocate()
	if err != nil {
		return fmt.Errorf("create: root leaf: %w", err)
	}
	defer rootG.done(&err)
	initLeaf(rootG.pg, t.leafCap)

	t.meta = indexMeta{
		relationName:   req.RelationName,
		attrByteOffset: req.AttrByteOffset,
		attrType:       req.AttrType,
		root:           rootG.local(),
		rootIsLeaf:     true,
		leafCap:        uint16(t.leafCap),
		nodeCap:        uint16(t.nodeCap),
	}
	encodeMeta(t.meta, metaG.pg)

	zl := t.log.GetZerolog()
	zl.Info().
		Uint32("root", t.meta.root).
		Int("leaf_cap", t.leafCap).
		Int("node_cap", t.nodeCap).
		Msg("index created")
	return nil
}

// bulkLoad inserts every record of the relation and returns how many it read.
func (t *BPlusTree) bulkLoad(scanner RecordScanner, attrByteOffset int32) (int, error) {
	if scanner == nil {
		return 0, nil
	}
	loaded := 0
	for {
		rid, rec, err := scanner.Next()
		if errors.Is(err, types.ErrEndOfRelation) {
			return loaded, nil
		}
		if err != nil {
			return loaded, fmt.Errorf("bulkLoad: %w", err)
		}
		key, err := KeyAt(rec, attrByteOffset)
		if err != nil {
			return loaded, fmt.Errorf("bulkLoad: record %s: %w", rid, err)
		}
		if err := t.Insert(key, rid); err != nil {
			return loaded, fmt.Errorf("bulkLoad: %w", err)
		}
		loaded++
	}
}

// KeyAt reads the little-endian int32 key at offset of a tuple.
func KeyAt(rec []byte, offset int32) (int32, error) {
	if offset < 0 || int(offset)+keySize > len(rec) {
		return 0, fmt.Errorf("record of %d bytes has no int32 at offset %d", len(rec), offset)
	}
	return int32(binary.LittleEndian.Uint32(rec[offset:])), nil
}

// flush writes every page of the index and syncs the file.
func (t *BPlusTree) flush() error {
	if err := t.store.FlushFile(t.fileID); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := t.files.SyncFile(t.fileID); err != nil {
		return fmt.Errorf("flush: sync: %w", err)
	}
	return nil
}

// Flush makes every change durable without closing the index.
// It fails while a scan holds a leaf pinned.
func (t *BPlusTree) Flush() error {
	if t.closed {
		return ErrClosed
	}
	return t.flush()
}

// abandon drops the file after a failed open.
func (t *BPlusTree) abandon() {
	_ = t.store.FlushFile(t.fileID)
	_ = t.files.CloseFile(t.fileID)
	t.closed = true
}

// Close ends any active scan, writes every dirty page of the index and
// releases the file. It never panics; the first failure is returned and logged.
func (t *BPlusTree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if err := t.EndScan(); err != nil && !errors.Is(err, ErrScanNotInitialized) {
		errs = append(errs, err)
	}
	if err := t.store.FlushFile(t.fileID); err != nil {
		errs = append(errs, fmt.Errorf("Close: failed to flush pages: %w", err))
	}
	if err := t.files.CloseFile(t.fileID); err != nil {
		errs = append(errs, fmt.Errorf("Close: failed to close file: %w", err))
	}

	err := errors.Join(errs...)
	zl := t.log.GetZerolog()
	if err != nil {
		zl.Error().Err(err).Msg("index close failed")
	} else {
		zl.Debug().Msg("index closed")
	}
	return err
}

func (t *BPlusTree) Name() string { return t.name }
func (t *BPlusTree) Path() string { return t.path }
func (t *BPlusTree) FileID() uint32 { return t.fileID }
func (t *BPlusTree) RelationName() string { return t.meta.relationName }
func (t *BPlusTree) AttrByteOffset() int32 { return t.meta.attrByteOffset }
func (t *BPlusTree) AttrType() types.Datatype { return t.meta.attrType }
func (t *BPlusTree) RootPage() uint32 { return t.meta.root }
func (t *BPlusTree) RootIsLeaf() bool { return t.meta.rootIsLeaf }
func (t *BPlusTree) LeafCapacity() int { return t.leafCap }
func (t *BPlusTree) NodeCapacity() int { return t.nodeCap }
