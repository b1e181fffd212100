package catalog

import (
	"IdxDB/types"
	"errors"
	"os"
	"testing"
)

func TestRegisterAndReload(t *testing.T) {
	dir := t.TempDir()
	cm, err := NewCatalogManager(dir)
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}

	heapID, err := cm.RegisterRelation("emp")
	if err != nil {
		t.Fatalf("RegisterRelation: %v", err)
	}
	if _, err := cm.RegisterRelation("emp"); !errors.Is(err, ErrRelationExists) {
		t.Fatalf("duplicate relation = %v", err)
	}
	idxID, created, err := cm.RegisterIndex("emp", 4, types.INTEGER)
	if err != nil || !created {
		t.Fatalf("RegisterIndex = %d, %v, %v", idxID, created, err)
	}
	again, created, err := cm.RegisterIndex("emp", 4, types.INTEGER)
	if err != nil || created || again != idxID {
		t.Fatalf("second RegisterIndex = %d, %v, %v", again, created, err)
	}
	if heapID == idxID {
		t.Fatalf("heap and index share file id %d", heapID)
	}
	if _, _, err := cm.RegisterIndex("dept", 0, types.INTEGER); !errors.Is(err, ErrRelationNotFound) {
		t.Fatalf("index on unknown relation = %v", err)
	}

	reloaded, err := NewCatalogManager(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	rel, err := reloaded.GetRelation("emp")
	if err != nil {
		t.Fatalf("GetRelation: %v", err)
	}
	if rel.HeapFileID != heapID {
		t.Fatalf("heap id %d, want %d", rel.HeapFileID, heapID)
	}
	ie, err := reloaded.GetIndex("emp", 4)
	if err != nil || ie.FileID != idxID || ie.AttrType != types.INTEGER {
		t.Fatalf("GetIndex = %+v, %v", ie, err)
	}

	next, err := reloaded.RegisterRelation("dept")
	if err != nil {
		t.Fatalf("RegisterRelation dept: %v", err)
	}
	if next == heapID || next == idxID {
		t.Fatalf("reloaded catalog reused file id %d", next)
	}
	if names := reloaded.Relations(); len(names) != 2 || names[0] != "dept" || names[1] != "emp" {
		t.Fatalf("Relations = %v", names)
	}
}

func TestUnregisterIndex(t *testing.T) {
	cm, err := NewCatalogManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}
	if _, err := cm.RegisterRelation("emp"); err != nil {
		t.Fatalf("RegisterRelation: %v", err)
	}
	first, _, _ := cm.RegisterIndex("emp", 0, types.INTEGER)
	if err := cm.UnregisterIndex("emp", 0); err != nil {
		t.Fatalf("UnregisterIndex: %v", err)
	}
	if _, err := cm.GetIndex("emp", 0); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("GetIndex after unregister = %v", err)
	}
	if err := cm.UnregisterIndex("emp", 0); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("second UnregisterIndex = %v", err)
	}
	second, _, _ := cm.RegisterIndex("emp", 0, types.INTEGER)
	if second == first {
		t.Fatalf("file id %d reused", first)
	}
}

func TestSortedIndexes(t *testing.T) {
	e := RelationEntry{Indexes: map[string]IndexEntry{
		"r.8": {FileID: 3, AttrByteOffset: 8},
		"r.0": {FileID: 2, AttrByteOffset: 0},
		"r.4": {FileID: 4, AttrByteOffset: 4},
	}}
	got := e.SortedIndexes()
	for i, want := range []int32{0, 4, 8} {
		if got[i].AttrByteOffset != want {
			t.Fatalf("SortedIndexes = %+v", got)
		}
	}
}

func TestCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	cm, _ := NewCatalogManager(dir)
	if err := os.WriteFile(cm.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewCatalogManager(dir); err == nil {
		t.Fatalf("corrupt catalog loaded")
	}
}

func TestUnregisterRelation(t *testing.T) {
	cm, err := NewCatalogManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}
	if _, err := cm.RegisterRelation("emp"); err != nil {
		t.Fatalf("RegisterRelation: %v", err)
	}
	if err := cm.UnregisterRelation("emp"); err != nil {
		t.Fatalf("UnregisterRelation: %v", err)
	}
	if cm.RelationExists("emp") {
		t.Fatalf("relation still registered")
	}
	if err := cm.UnregisterRelation("emp"); !errors.Is(err, ErrRelationNotFound) {
		t.Fatalf("second UnregisterRelation = %v", err)
	}
}
