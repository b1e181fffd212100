// Package config holds the engine configuration shared by the storage engine
// and the command line tools.
package config

import (
	"errors"
	"flag"
	"fmt"

	"IdxDB/types"
)

const (
	// Largest capacities that still fit a node into one page.
	MaxLeafCapacity = (types.PageSize - 24) / 10
	MaxNodeCapacity = (types.PageSize - 24 - 4) / 8
)

type Config struct {
	DataDir         string // heap files, index files and catalog.json
	BufferPoolPages int    // frames in the buffer pool
	PageCacheBytes  int64  // ristretto page image cache budget, 0 disables it
	LeafCapacity    int    // entries per leaf, 0 = as many as fit
	NodeCapacity    int    // separator keys per internal node, 0 = as many as fit
	LogLevel        string
	LogPretty       bool
	MetricsAddr     string // empty disables the /metrics listener
}

func Default() Config {
	return Config{
		DataDir:         "data",
		BufferPoolPages: 256,
		PageCacheBytes:  8 << 20,
		LogLevel:        "info",
		LogPretty:       true,
	}
}

// RegisterFlags binds every field to fs using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "data", c.DataDir, "data directory")
	fs.IntVar(&c.BufferPoolPages, "pool", c.BufferPoolPages, "buffer pool size in pages")
	fs.Int64Var(&c.PageCacheBytes, "page-cache", c.PageCacheBytes, "page image cache size in bytes (0 disables)")
	fs.IntVar(&c.LeafCapacity, "leaf-cap", c.LeafCapacity, "leaf capacity for new indexes (0 = max)")
	fs.IntVar(&c.NodeCapacity, "node-cap", c.NodeCapacity, "internal node capacity for new indexes (0 = max)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn, error or disabled")
	fs.BoolVar(&c.LogPretty, "log-pretty", c.LogPretty, "human readable log output")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "address for the prometheus /metrics endpoint")
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data directory must be set"))
	}
	// The tree pins at most a leaf, its sibling, a parent and one child at a time.
	if c.BufferPoolPages < 8 {
		errs = append(errs, fmt.Errorf("buffer pool needs at least 8 pages, got %d", c.BufferPoolPages))
	}
	if c.PageCacheBytes < 0 {
		errs = append(errs, fmt.Errorf("page cache size must not be negative, got %d", c.PageCacheBytes))
	}
	if c.LeafCapacity != 0 && (c.LeafCapacity < 2 || c.LeafCapacity > MaxLeafCapacity) {
		errs = append(errs, fmt.Errorf("leaf capacity %d outside [2, %d]", c.LeafCapacity, MaxLeafCapacity))
	}
	if c.NodeCapacity != 0 && (c.NodeCapacity < 2 || c.NodeCapacity > MaxNodeCapacity) {
		errs = append(errs, fmt.Errorf("node capacity %d outside [2, %d]", c.NodeCapacity, MaxNodeCapacity))
	}
	return errors.Join(errs...)
}

// String is a compact summary of the tree and pool settings, for reports.
func (c Config) String() string {
	return fmt.Sprintf("pool=%d leaf=%d node=%d cache=%d", c.BufferPoolPages, c.LeafCapacity, c.NodeCapacity, c.PageCacheBytes)
}
