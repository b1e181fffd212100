// range_scan runs one range query through an index and prints the tuples.
// Usage: go run ./cmd/range_scan -off 4 -low 30 -lowop ">=" -high 40 -highop "<"
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"IdxDB/internal/config"
	"IdxDB/internal/sample"
	storageengine "IdxDB/storage_engine"
	"IdxDB/types"

	"github.com/dustin/go-humanize"
)

func main() {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.RegisterFlags(flag.CommandLine)
	rel := flag.String("rel", sample.Relation, "relation name")
	off := flag.Int("off", int(sample.OffAge), "byte offset of the indexed attribute")
	low := flag.Int("low", 30, "low bound")
	high := flag.Int("high", 40, "high bound")
	lowOpName := flag.String("lowop", "GTE", "low operator: GT, GTE, > or >=")
	highOpName := flag.String("highop", "LT", "high operator: LT, LTE, < or <=")
	limit := flag.Int("limit", 20, "tuples to print (0 = all)")
	flag.Parse()

	lowOp, err := types.ParseOperator(*lowOpName)
	if err != nil {
		log.Fatal(err)
	}
	highOp, err := types.ParseOperator(*highOpName)
	if err != nil {
		log.Fatal(err)
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer se.Close()

	start := time.Now()
	rows, err := se.RangeQuery(*rel, int32(*off), int32(*low), lowOp, int32(*high), highOp)
	if err != nil {
		log.Fatalf("range query: %v", err)
	}
	elapsed := time.Since(start)

	for i, row := range rows {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... %s more\n", humanize.Comma(int64(len(rows)-i)))
			break
		}
		if e, err := sample.Decode(row.Data); err == nil && *rel == sample.Relation {
			fmt.Printf("%6d  %-8s %s\n", row.Key, row.RID, e)
		} else {
			fmt.Printf("%6d  %-8s %d bytes\n", row.Key, row.RID, len(row.Data))
		}
	}
	fmt.Printf("%s tuples with %d %s key %s %d in %s\n",
		humanize.Comma(int64(len(rows))), *low, lowOp, highOp, *high, elapsed)
}
