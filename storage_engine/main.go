package storageengine

import (
	"IdxDB/internal/config"
	"IdxDB/internal/logger"
	"IdxDB/internal/metrics"
	heapfile "IdxDB/storage_engine/access/heapfile_manager"
	indexfile "IdxDB/storage_engine/access/indexfile_manager"
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/storage_engine/bufferpool"
	"IdxDB/storage_engine/catalog"
	diskmanager "IdxDB/storage_engine/disk_manager"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

/*
The main file of storage engine. It wires the disk manager, buffer pool,
catalog, heap files and indexes under one data directory:

	<data>/catalog.json
	<data>/heap/<relation>.heap
	<data>/indexes/<relation>.<offset>

Every relation in the catalog is reopened on start, together with its indexes.
*/

var ErrEngineClosed = errors.New("storage engine is closed")

func NewStorageEngine(cfg config.Config) (*StorageEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	log := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	m := metrics.NewMetrics()

	dm, err := diskmanager.NewDiskManager(cfg.PageCacheBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to init disk manager: %w", err)
	}
	dm.SetLogger(log.Component("disk_manager"))
	dm.SetMetrics(m)

	bp := bufferpool.NewBufferPool(cfg.BufferPoolPages, dm)
	bp.SetLogger(log.Component("buffer_pool"))
	bp.SetMetrics(m)

	cm, err := catalog.NewCatalogManager(cfg.DataDir)
	if err != nil {
		_ = dm.CloseAll()
		return nil, fmt.Errorf("failed to init catalog manager: %w", err)
	}

	hfm, err := heapfile.NewHeapFileManager(filepath.Join(cfg.DataDir, "heap"), dm, bp)
	if err != nil {
		_ = dm.CloseAll()
		return nil, err
	}
	hfm.SetLogger(log.Component("heap"))

	ifm, err := indexfile.NewIndexFileManager(filepath.Join(cfg.DataDir, "indexes"), dm, bp, bplus.Options{
		LeafCapacity: cfg.LeafCapacity,
		NodeCapacity: cfg.NodeCapacity,
		Logger:       log,
		Metrics:      m,
	})
	if err != nil {
		_ = dm.CloseAll()
		return nil, err
	}

	se := &StorageEngine{
		BufferPool:     bp,
		DiskManager:    dm,
		CatalogManager: cm,
		IndexManager:   ifm,
		HeapManager:    hfm,
		Log:            log,
		Metrics:        m,
		cfg:            cfg,
	}

	if err := se.openAll(); err != nil {
		_ = se.Close()
		return nil, err
	}

	log.GetZerolog().Info().
		Str("data_dir", cfg.DataDir).
		Int("pool_pages", cfg.BufferPoolPages).
		Str("page_cache", humanize.IBytes(uint64(cfg.PageCacheBytes))).
		Int("relations", len(cm.Relations())).
		Str("indexes", ifm.OpenNames()).
		Msg("storage engine ready")
	return se, nil
}

// openAll reopens every relation of the catalog and its indexes.
func (se *StorageEngine) openAll() error {
	for _, name := range se.CatalogManager.Relations() {
		rel, err := se.CatalogManager.GetRelation(name)
		if err != nil {
			return err
		}
		hf, err := se.HeapManager.OpenHeapFile(name, rel.HeapFileID)
		if err != nil {
			return fmt.Errorf("open relation %s: %w", name, err)
		}
		for _, ie := range rel.SortedIndexes() {
			if _, err := se.openIndex(hf, ie.AttrByteOffset, ie); err != nil {
				return err
			}
		}
	}
	return nil
}

// Config returns the configuration the engine was started with.
func (se *StorageEngine) Config() config.Config {
	return se.cfg
}

// Flush writes every dirty page and syncs all files. Pinned pages are
// written too and keep their pins, so an open index scan carries on.
func (se *StorageEngine) Flush() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return ErrEngineClosed
	}
	if err := se.BufferPool.FlushAllPages(); err != nil {
		return err
	}
	return se.DiskManager.Sync()
}

// Close closes every index and heap file. It can be called more than once.
func (se *StorageEngine) Close() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return nil
	}
	se.closed = true

	var errs []error
	if err := se.IndexManager.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if err := se.HeapManager.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if err := se.DiskManager.CloseAll(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		se.Log.Error("storage engine close failed", err)
	} else {
		se.Log.Info("storage engine closed")
	}
	return err
}
