package main

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// lsmStore keeps the same tuples in Pebble, keyed by (key, sequence) so
// duplicate keys are kept like in the index.
type lsmStore struct {
	db *pebble.DB
}

func openLSM(dir string) (*lsmStore, error) {
	opts := &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("lsm: open: %w", err)
	}
	return &lsmStore{db: db}, nil
}

func (l *lsmStore) Close() error {
	return l.db.Close()
}

func (l *lsmStore) Insert(key int32, seq uint32, value []byte) error {
	return l.db.Set(encodeKey(key, seq), value, pebble.NoSync)
}

// Range counts the values with lo <= key < hi.
func (l *lsmStore) Range(lo, hi int32) (int, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: encodeKey(lo, 0),
		UpperBound: encodeKey(hi, 0),
	})
	if err != nil {
		return 0, fmt.Errorf("lsm: range: %w", err)
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Close(); err != nil {
		return n, fmt.Errorf("lsm: range: %w", err)
	}
	return n, nil
}

// encodeKey flips the sign bit so byte order matches int32 order.
func encodeKey(key int32, seq uint32) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:], uint32(key)^0x80000000)
	binary.BigEndian.PutUint32(b[4:], seq)
	return b
}
