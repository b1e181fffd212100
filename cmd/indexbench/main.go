// indexbench compares the B+ tree index against a Pebble LSM store on the same
// random int32 keys and writes one CSV row per measured operation.
// Usage: go run ./cmd/indexbench -n 100000 -out bench.csv -metrics :2112
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"IdxDB/internal/config"
	"IdxDB/internal/sample"
	storageengine "IdxDB/storage_engine"
	"IdxDB/types"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.DataDir = ""
	cfg.RegisterFlags(flag.CommandLine)
	n := flag.Int("n", 50000, "keys to insert")
	scans := flag.Int("scans", 1000, "range scans to run")
	width := flag.Int("width", 100, "key width of each range scan")
	out := flag.String("out", "indexbench.csv", "CSV output file")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	workDir, err := os.MkdirTemp("", "indexbench")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(workDir)
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(workDir, "idxdb")
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"store", "config", "operation", "latency_ns", "mem_mb", "objects"})

	r := rand.New(rand.NewSource(*seed))
	keys := make([]int32, *n)
	for i := range keys {
		keys[i] = int32(r.Intn(*n * 4))
	}
	ranges := make([][2]int32, *scans)
	for i := range ranges {
		lo := int32(r.Intn(*n * 4))
		ranges[i] = [2]int32{lo, lo + int32(*width)}
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer se.Close()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(se.Metrics.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	treeCfg := cfg.String()
	if err := benchTree(se, keys, ranges, w, treeCfg); err != nil {
		log.Fatalf("b+tree: %v", err)
	}

	lsm, err := openLSM(filepath.Join(workDir, "pebble"))
	if err != nil {
		log.Fatal(err)
	}
	if err := benchLSM(lsm, keys, ranges, w); err != nil {
		log.Fatalf("pebble: %v", err)
	}
	if err := lsm.Close(); err != nil {
		log.Fatal(err)
	}

	st, err := se.Stats()
	if err == nil {
		log.Printf("buffer pool: %d/%d pages, hit rate %.1f%%; page cache %s, hit ratio %.2f",
			st.BufferPool.TotalPages, st.BufferPool.Capacity, st.BufferPool.HitRate*100,
			humanize.IBytes(uint64(st.PageCache.MaxBytes)), st.PageCache.HitRatio)
	}
	log.Printf("results written to %s", *out)

	if cfg.MetricsAddr != "" {
		log.Printf("serving /metrics on %s, interrupt to exit", cfg.MetricsAddr)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
	}
}

func benchTree(se *storageengine.StorageEngine, keys []int32, ranges [][2]int32, w *csv.Writer, conf string) error {
	if err := se.CreateRelation("bench"); err != nil {
		return err
	}
	if _, err := se.CreateIndex("bench", sample.OffID, types.INTEGER); err != nil {
		return err
	}

	start := time.Now()
	for i, k := range keys {
		e := sample.Employee{ID: k, Age: int32(i)}
		if _, err := se.InsertTuple("bench", e.Encode()); err != nil {
			return err
		}
	}
	record(w, "bplustree", conf, "insert", time.Since(start), len(keys))

	start = time.Now()
	found := 0
	for _, rg := range ranges {
		rows, err := se.RangeQuery("bench", sample.OffID, rg[0], types.GTE, rg[1], types.LT)
		if err != nil {
			return err
		}
		found += len(rows)
	}
	record(w, "bplustree", conf, "range", time.Since(start), len(ranges))
	log.Printf("bplustree: %s inserts, %s range scans returned %s tuples",
		humanize.Comma(int64(len(keys))), humanize.Comma(int64(len(ranges))), humanize.Comma(int64(found)))
	return se.Flush()
}

func benchLSM(l *lsmStore, keys []int32, ranges [][2]int32, w *csv.Writer) error {
	start := time.Now()
	for i, k := range keys {
		e := sample.Employee{ID: k, Age: int32(i)}
		if err := l.Insert(k, uint32(i), e.Encode()); err != nil {
			return err
		}
	}
	record(w, "pebble", "memtable=16MiB", "insert", time.Since(start), len(keys))

	start = time.Now()
	found := 0
	for _, rg := range ranges {
		n, err := l.Range(rg[0], rg[1])
		if err != nil {
			return err
		}
		found += n
	}
	record(w, "pebble", "memtable=16MiB", "range", time.Since(start), len(ranges))
	log.Printf("pebble: %s range scans returned %s values",
		humanize.Comma(int64(len(ranges))), humanize.Comma(int64(found)))
	return nil
}
