package bplus

import (
	"IdxDB/types"
	"bytes"
	"math"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func leaves(t *testing.T, tree *BPlusTree) []NodeInfo {
	t.Helper()
	var out []NodeInfo
	err := tree.Walk(func(_ int, n NodeInfo) error {
		if n.Leaf {
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return out
}

func rootInfo(t *testing.T, tree *BPlusTree) NodeInfo {
	t.Helper()
	info, err := tree.readNode(tree.RootPage(), tree.RootIsLeaf())
	if err != nil {
		t.Fatalf("readNode root: %v", err)
	}
	return info
}

func TestLeafSplitKeepsHalfLeft(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 4, 4)
	defer tree.Close()

	insertAll(t, tree, 10, 20, 30, 40)
	if !tree.RootIsLeaf() {
		t.Fatalf("root split before overflow")
	}
	insertAll(t, tree, 50)

	if tree.RootIsLeaf() {
		t.Fatalf("root still a leaf after overflow")
	}
	ls := leaves(t, tree)
	if len(ls) != 2 || !equalKeys(ls[0].Keys, []int32{10, 20}) || !equalKeys(ls[1].Keys, []int32{30, 40, 50}) {
		t.Fatalf("leaves = %+v", ls)
	}
	root := rootInfo(t, tree)
	if !equalKeys(root.Keys, []int32{30}) || root.Level != 0 {
		t.Fatalf("root keys=%v level=%d", root.Keys, root.Level)
	}
	if ls[0].RightSib != ls[1].Page || ls[1].RightSib != noPage {
		t.Fatalf("leaf chain %d -> %d -> %d", ls[0].Page, ls[0].RightSib, ls[1].RightSib)
	}
	if ls[0].Parent != root.Page || ls[1].Parent != root.Page {
		t.Fatalf("parent links %d/%d, root %d", ls[0].Parent, ls[1].Parent, root.Page)
	}

	if got := testutil.ToFloat64(e.metrics.IndexSplitsTotal.WithLabelValues("leaf")); got != 1 {
		t.Fatalf("leaf splits = %v", got)
	}
	if got := testutil.ToFloat64(e.metrics.IndexSplitsTotal.WithLabelValues("root")); got != 1 {
		t.Fatalf("root splits = %v", got)
	}
	if got := testutil.ToFloat64(e.metrics.IndexInserts); got != 5 {
		t.Fatalf("inserts = %v", got)
	}
	e.assertNoPins(t)
}

func TestLeafSplitPendingKeyGoesLeft(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 4, 4)
	defer tree.Close()

	insertAll(t, tree, 10, 20, 30, 40, 15)

	ls := leaves(t, tree)
	if len(ls) != 2 || !equalKeys(ls[0].Keys, []int32{10, 15, 20}) || !equalKeys(ls[1].Keys, []int32{30, 40}) {
		t.Fatalf("leaves = %v / %v", ls[0].Keys, ls[1].Keys)
	}
	if root := rootInfo(t, tree); !equalKeys(root.Keys, []int32{30}) {
		t.Fatalf("separator = %v", root.Keys)
	}
}

func TestOddLeafCapacityPutsExtraRight(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 5, 4)
	defer tree.Close()

	insertAll(t, tree, seq(1, 6)...)

	ls := leaves(t, tree)
	if len(ls) != 2 || !equalKeys(ls[0].Keys, []int32{1, 2}) || !equalKeys(ls[1].Keys, []int32{3, 4, 5, 6}) {
		t.Fatalf("leaves = %v / %v", ls[0].Keys, ls[1].Keys)
	}
}

func TestInternalSplitGrowsTree(t *testing.T) {
	e := newEnv(t, 64)
	tree := e.open(t, e.request("emp"), nil, 2, 2)
	defer tree.Close()

	insertAll(t, tree, seq(1, 64)...)

	if err := tree.CheckInvariants(); err != nil {
		var buf bytes.Buffer
		_ = tree.Dump(&buf)
		t.Fatalf("CheckInvariants: %v\n%s", err, buf.String())
	}
	st, err := tree.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Height < 4 || st.Entries != 64 {
		t.Fatalf("stats = %+v", st)
	}
	if got := testutil.ToFloat64(e.metrics.IndexSplitsTotal.WithLabelValues("internal")); got == 0 {
		t.Fatalf("no internal split recorded")
	}

	root := rootInfo(t, tree)
	if int(root.Level) != st.Height-2 {
		t.Fatalf("root level %d for height %d", root.Level, st.Height)
	}
	if got := scanKeys(t, tree, 1, types.GTE, 64, types.LTE); !equalKeys(got, seq(1, 64)) {
		t.Fatalf("scan = %v", got)
	}
	e.assertNoPins(t)
}

func TestRandomInsertsKeepInvariants(t *testing.T) {
	for _, caps := range [][2]int{{2, 2}, {3, 3}, {4, 5}, {7, 3}, {0, 0}} {
		e := newEnv(t, 16)
		tree := e.open(t, e.request("emp"), nil, caps[0], caps[1])

		r := rand.New(rand.NewSource(int64(caps[0]*31 + caps[1])))
		want := make([]int32, 0, 1500)
		for i := 0; i < 1500; i++ {
			k := int32(r.Intn(400)) - 200
			insertAll(t, tree, k)
			want = append(want, k)
		}
		if err := tree.CheckInvariants(); err != nil {
			t.Fatalf("caps %v: %v", caps, err)
		}

		got := scanKeys(t, tree, math.MinInt32, types.GTE, math.MaxInt32, types.LTE)
		slices.Sort(want)
		if !equalKeys(got, want) {
			t.Fatalf("caps %v: scan returned %d keys, want %d", caps, len(got), len(want))
		}
		e.assertNoPins(t)
		if err := tree.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestExtremeKeysRoundTrip(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 3, 3)
	defer tree.Close()

	keys := []int32{0, math.MaxInt32, -1, math.MinInt32, 1, math.MaxInt32 - 1, math.MinInt32 + 1}
	insertAll(t, tree, keys...)

	got := scanKeys(t, tree, math.MinInt32, types.GTE, math.MaxInt32, types.LTE)
	want := []int32{math.MinInt32, math.MinInt32 + 1, -1, 0, 1, math.MaxInt32 - 1, math.MaxInt32}
	if !equalKeys(got, want) {
		t.Fatalf("scan = %v", got)
	}
	if got := scanKeys(t, tree, math.MaxInt32, types.GTE, math.MaxInt32, types.LTE); !equalKeys(got, []int32{math.MaxInt32}) {
		t.Fatalf("max only = %v", got)
	}
}

func TestSmallPoolEvictsUnderLoad(t *testing.T) {
	e := newEnv(t, 8)
	tree := e.open(t, e.request("emp"), nil, 4, 4)
	defer tree.Close()

	r := rand.New(rand.NewSource(5))
	for _, k := range r.Perm(3000) {
		insertAll(t, tree, int32(k))
	}
	if err := tree.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
	if got := scanKeys(t, tree, 1000, types.GTE, 1010, types.LT); !equalKeys(got, seq(1000, 1009)) {
		t.Fatalf("scan = %v", got)
	}
	e.assertNoPins(t)
}

func TestDump(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 4, 4)
	defer tree.Close()
	insertAll(t, tree, seq(1, 12)...)

	var buf bytes.Buffer
	if err := tree.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Index emp.0", "INTERNAL", "LEAF", "12 -> (13,12)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestInsertAfterCloseFails(t *testing.T) {
	e := newEnv(t, 32)
	tree := e.open(t, e.request("emp"), nil, 4, 4)
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tree.Insert(1, rid(1)); err != ErrClosed {
		t.Fatalf("Insert after Close = %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}
