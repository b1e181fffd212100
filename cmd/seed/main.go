// Seed program: creates relation "emp", fills it with generated employees and
// builds indexes on id and age.
// Run: go run ./cmd/seed -records 5000
// Then inspect: go run ./cmd/inspect_idx -off 4
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"IdxDB/internal/config"
	"IdxDB/internal/sample"
	storageengine "IdxDB/storage_engine"
	bplus "IdxDB/storage_engine/access/indexfile_manager/bplustree"
	"IdxDB/types"

	"github.com/dustin/go-humanize"
)

func main() {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	records := flag.Int("records", 1000, "employees to insert")
	reset := flag.Bool("reset", false, "erase the data directory first")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	if *reset {
		if err := os.RemoveAll(cfg.DataDir); err != nil {
			log.Fatalf("reset: %v", err)
		}
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer se.Close()

	if !se.CatalogManager.RelationExists(sample.Relation) {
		if err := se.CreateRelation(sample.Relation); err != nil {
			log.Fatalf("create relation: %v", err)
		}
	}

	// the id index is built before the load and maintained by every insert,
	// the age index is bulk loaded afterwards
	if _, err := se.CreateIndex(sample.Relation, sample.OffID, types.INTEGER); err != nil {
		log.Fatalf("create id index: %v", err)
	}

	r := rand.New(rand.NewSource(*seed))
	start := time.Now()
	base := int32(0)
	if st, err := se.Stats(); err == nil {
		base = int32(st.Indexes[bplus.IndexName(sample.Relation, sample.OffID)].Entries)
	}
	for i := 0; i < *records; i++ {
		e := sample.Fake(base+int32(i), r)
		if _, err := se.InsertTuple(sample.Relation, e.Encode()); err != nil {
			log.Fatalf("insert %s: %v", e, err)
		}
	}
	loadTime := time.Since(start)

	if _, err := se.CreateIndex(sample.Relation, sample.OffAge, types.INTEGER); err != nil {
		log.Fatalf("create age index: %v", err)
	}
	if err := se.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	st, err := se.Stats()
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("inserted %s employees in %s into %s\n",
		humanize.Comma(int64(*records)), loadTime.Round(time.Millisecond), cfg.DataDir)
	for name, ts := range st.Indexes {
		fmt.Printf("  index %-8s height=%d leaves=%d internals=%d entries=%s\n",
			name, ts.Height, ts.Leaves, ts.Internals, humanize.Comma(int64(ts.Entries)))
	}
	fmt.Printf("  buffer pool hit rate %.1f%%, page cache hits %d\n",
		st.BufferPool.HitRate*100, st.PageCache.Hits)
}
