package config

import (
	"flag"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"tiny pool", func(c *Config) { c.BufferPoolPages = 3 }},
		{"negative cache", func(c *Config) { c.PageCacheBytes = -1 }},
		{"leaf cap 1", func(c *Config) { c.LeafCapacity = 1 }},
		{"leaf cap too big", func(c *Config) { c.LeafCapacity = MaxLeafCapacity + 1 }},
		{"node cap too big", func(c *Config) { c.NodeCapacity = MaxNodeCapacity + 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse([]string{"-data", "/tmp/x", "-leaf-cap", "4", "-pool", "32"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DataDir != "/tmp/x" || cfg.LeafCapacity != 4 || cfg.BufferPoolPages != 32 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("untouched default changed: %q", cfg.LogLevel)
	}
}

func TestCapacitiesFitPage(t *testing.T) {
	if MaxLeafCapacity != 407 {
		t.Errorf("MaxLeafCapacity = %d, want 407", MaxLeafCapacity)
	}
	if MaxNodeCapacity != 508 {
		t.Errorf("MaxNodeCapacity = %d, want 508", MaxNodeCapacity)
	}
}
