package catalog

import (
	"IdxDB/types"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

/*
The catalog maps every relation to its heap file id and the file ids of its
indexes, and hands out new file ids. It is persisted as a single JSON file in
the data directory and rewritten after every change.
*/

const FileName = "catalog.json"

var (
	ErrRelationExists   = errors.New("catalog: relation already exists")
	ErrRelationNotFound = errors.New("catalog: relation not found")
	ErrIndexNotFound    = errors.New("catalog: index not found")
)

// NewCatalogManager loads the catalog of dataDir, or starts an empty one.
func NewCatalogManager(dataDir string) (*CatalogManager, error) {
	cm := &CatalogManager{
		dataDir:    dataDir,
		relations:  make(map[string]RelationEntry),
		nextFileID: 1,
	}
	if err := cm.load(); err != nil {
		return nil, err
	}
	return cm, nil
}

// IndexName is the name an index on attrByteOffset of relation is registered under.
func IndexName(relation string, attrByteOffset int32) string {
	return relation + "." + strconv.Itoa(int(attrByteOffset))
}

func (cm *CatalogManager) Path() string {
	return filepath.Join(cm.dataDir, FileName)
}

func (cm *CatalogManager) RelationExists(name string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, ok := cm.relations[name]
	return ok
}

// RegisterRelation allocates the heap file id of a new relation.
func (cm *CatalogManager) RegisterRelation(name string) (uint32, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.relations[name]; ok {
		return 0, fmt.Errorf("%q: %w", name, ErrRelationExists)
	}
	heapFileID := cm.nextFileID
	cm.nextFileID++
	cm.relations[name] = RelationEntry{HeapFileID: heapFileID, Indexes: make(map[string]IndexEntry)}

	if err := cm.persistLocked(); err != nil {
		delete(cm.relations, name)
		cm.nextFileID--
		return 0, err
	}
	return heapFileID, nil
}

// UnregisterRelation forgets a relation and its indexes.
func (cm *CatalogManager) UnregisterRelation(name string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	rel, ok := cm.relations[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrRelationNotFound)
	}
	delete(cm.relations, name)
	if err := cm.persistLocked(); err != nil {
		cm.relations[name] = rel
		return err
	}
	return nil
}

// RegisterIndex returns the file id of the index on attrByteOffset of
// relation, allocating one on first use. created reports a new allocation.
func (cm *CatalogManager) RegisterIndex(relation string, attrByteOffset int32, attrType types.Datatype) (fileID uint32, created bool, err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	rel, ok := cm.relations[relation]
	if !ok {
		return 0, false, fmt.Errorf("%q: %w", relation, ErrRelationNotFound)
	}
	name := IndexName(relation, attrByteOffset)
	if ie, ok := rel.Indexes[name]; ok {
		return ie.FileID, false, nil
	}

	ie := IndexEntry{FileID: cm.nextFileID, AttrByteOffset: attrByteOffset, AttrType: attrType}
	cm.nextFileID++
	rel.Indexes[name] = ie
	if err := cm.persistLocked(); err != nil {
		delete(rel.Indexes, name)
		cm.nextFileID--
		return 0, false, err
	}
	return ie.FileID, true, nil
}

// UnregisterIndex forgets an index, e.g. after its build failed.
// Its file id is not reused.
func (cm *CatalogManager) UnregisterIndex(relation string, attrByteOffset int32) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	rel, ok := cm.relations[relation]
	if !ok {
		return fmt.Errorf("%q: %w", relation, ErrRelationNotFound)
	}
	name := IndexName(relation, attrByteOffset)
	ie, ok := rel.Indexes[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrIndexNotFound)
	}
	delete(rel.Indexes, name)
	if err := cm.persistLocked(); err != nil {
		rel.Indexes[name] = ie
		return err
	}
	return nil
}

// GetRelation returns a copy of the relation's entry.
func (cm *CatalogManager) GetRelation(name string) (RelationEntry, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	rel, ok := cm.relations[name]
	if !ok {
		return RelationEntry{}, fmt.Errorf("%q: %w", name, ErrRelationNotFound)
	}
	out := RelationEntry{HeapFileID: rel.HeapFileID, Indexes: make(map[string]IndexEntry, len(rel.Indexes))}
	for k, v := range rel.Indexes {
		out.Indexes[k] = v
	}
	return out, nil
}

// GetIndex looks up one index of a relation.
func (cm *CatalogManager) GetIndex(relation string, attrByteOffset int32) (IndexEntry, error) {
	rel, err := cm.GetRelation(relation)
	if err != nil {
		return IndexEntry{}, err
	}
	ie, ok := rel.Indexes[IndexName(relation, attrByteOffset)]
	if !ok {
		return IndexEntry{}, fmt.Errorf("%s: %w", IndexName(relation, attrByteOffset), ErrIndexNotFound)
	}
	return ie, nil
}

// Relations lists relation names in order.
func (cm *CatalogManager) Relations() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	names := make([]string, 0, len(cm.relations))
	for name := range cm.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedIndexes returns the indexes of an entry ordered by attribute offset.
func (e RelationEntry) SortedIndexes() []IndexEntry {
	out := make([]IndexEntry, 0, len(e.Indexes))
	for _, ie := range e.Indexes {
		out = append(out, ie)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttrByteOffset < out[j].AttrByteOffset })
	return out
}

func (cm *CatalogManager) persistLocked() error {
	if err := os.MkdirAll(cm.dataDir, 0755); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	data, err := json.MarshalIndent(catalogFile{NextFileID: cm.nextFileID, Relations: cm.relations}, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}

	// write then rename so a crash never leaves a truncated catalog
	tmp := cm.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("catalog: write: %w", err)
	}
	if err := os.Rename(tmp, cm.Path()); err != nil {
		return fmt.Errorf("catalog: rename: %w", err)
	}
	return nil
}

func (cm *CatalogManager) load() error {
	data, err := os.ReadFile(cm.Path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("catalog: read: %w", err)
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", cm.Path(), err)
	}
	if cf.Relations != nil {
		cm.relations = cf.Relations
	}
	for name, rel := range cm.relations {
		if rel.Indexes == nil {
			rel.Indexes = make(map[string]IndexEntry)
			cm.relations[name] = rel
		}
	}

	// never hand out an id that is already in use
	cm.nextFileID = cf.NextFileID
	for _, rel := range cm.relations {
		if rel.HeapFileID >= cm.nextFileID {
			cm.nextFileID = rel.HeapFileID + 1
		}
		for _, ie := range rel.Indexes {
			if ie.FileID >= cm.nextFileID {
				cm.nextFileID = ie.FileID + 1
			}
		}
	}
	if cm.nextFileID == 0 {
		cm.nextFileID = 1
	}
	return nil
}
