package main

import (
	"encoding/csv"
	"runtime"
	"strconv"
	"time"
)

// record writes one CSV row: per-operation latency plus live heap after a GC.
func record(w *csv.Writer, store, conf, op string, total time.Duration, ops int) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)

	perOp := total.Nanoseconds()
	if ops > 0 {
		perOp /= int64(ops)
	}
	w.Write([]string{
		store,
		conf,
		op,
		strconv.FormatInt(perOp, 10),
		strconv.FormatUint(m.Alloc/1024/1024, 10),
		strconv.FormatUint(m.HeapObjects, 10),
	})
}
