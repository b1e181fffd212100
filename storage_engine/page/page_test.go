package page

import (
	"IdxDB/types"
	"testing"
)

func TestGlobalIDRoundTrip(t *testing.T) {
	cases := []struct {
		file  uint32
		local uint32
	}{
		{1, 0}, {1, 1}, {7, 12345}, {0xFFFFFFFF, 0xFFFFFFFF},
	}
	for _, tc := range cases {
		id := GlobalID(tc.file, tc.local)
		if FileOf(id) != tc.file || LocalNum(id) != tc.local {
			t.Errorf("GlobalID(%d,%d)=%d decodes to (%d,%d)", tc.file, tc.local, id, FileOf(id), LocalNum(id))
		}
	}
}

func TestNewPage(t *testing.T) {
	pg := New(GlobalID(3, 9), 3, types.PageTypeBPlusNode)
	if len(pg.Data) != PageSize {
		t.Fatalf("data len = %d", len(pg.Data))
	}
	if pg.Local() != 9 || pg.PinCount != 0 || pg.IsDirty {
		t.Fatalf("unexpected fresh page state: %+v", pg)
	}
}
