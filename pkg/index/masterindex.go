package index

import (
	"sync"
	"time"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/pack"
)

// Persister is the narrow slice of the Repository the MasterIndex
// needs to write and remove index files, kept separate from the
// repository package to avoid an import cycle.
type Persister interface {
	SaveIndex(id blob.ID, data []byte) error
	RemoveIndex(id blob.ID) error
}

// MasterIndex is the aggregate of zero or more finalized Indices plus
// one pending Index receiving new entries, and a pending-blobs set
// used to deduplicate concurrent in-flight encodes.
//
// Hot-path reads (Contains, Get) take the shared lock; insertion
// (AddPack, Cleanup) takes the exclusive lock.
type MasterIndex struct {
	mu sync.RWMutex

	finalized []*Index
	pending   *Index

	pendingBlobs map[blob.ID]bool
}

// New returns an empty MasterIndex.
func New() *MasterIndex {
	return &MasterIndex{pendingBlobs: make(map[blob.ID]bool)}
}

// LoadIndexFile adds an already-persisted Index file's raw bytes to
// the MasterIndex, used when opening an existing repository.
func (mi *MasterIndex) LoadIndexFile(id blob.ID, data []byte) error {
	ix, err := unmarshalIndex(data, id)
	if err != nil {
		return err
	}
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.finalized = append(mi.finalized, ix)
	return nil
}

// Contains reports whether id is known, either in a finalized Index
// or still pending.
func (mi *MasterIndex) Contains(id blob.ID) bool {
	mi.mu.RLock()
	pending := mi.pending
	finalized := mi.finalized
	inPendingSet := mi.pendingBlobs[id]
	mi.mu.RUnlock()

	if inPendingSet {
		return true
	}
	if pending != nil && pending.contains(id) {
		return true
	}
	for _, ix := range finalized {
		if ix.contains(id) {
			return true
		}
	}
	return false
}

// Get looks up id in the pending Index first, then in the finalized
// Indices.
func (mi *MasterIndex) Get(id blob.ID) (Location, bool) {
	mi.mu.RLock()
	pending := mi.pending
	finalized := mi.finalized
	mi.mu.RUnlock()

	if pending != nil {
		if loc, ok := pending.get(id); ok {
			return loc, true
		}
	}
	for _, ix := range finalized {
		if loc, ok := ix.get(id); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// AddPendingBlob reserves id for an in-flight producer. It returns
// false if id is already known (pending or finalized), in which case
// the caller must not redundantly encode it.
func (mi *MasterIndex) AddPendingBlob(id blob.ID) bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.pendingBlobs[id] {
		return false
	}
	if mi.pending != nil && mi.pending.contains(id) {
		return false
	}
	for _, ix := range mi.finalized {
		if ix.contains(id) {
			return false
		}
	}
	mi.pendingBlobs[id] = true
	return true
}

// AddPack records a freshly flushed pack's descriptors, clearing the
// pending-blob reservations they satisfy. If the resulting pending
// Index has grown full or stale, it is finalized and persisted.
func (mi *MasterIndex) AddPack(p Persister, packID blob.ID, descs []pack.Descriptor) error {
	mi.mu.Lock()
	if mi.pending == nil {
		mi.pending = newIndex()
	}
	pending := mi.pending
	for _, d := range descs {
		delete(mi.pendingBlobs, d.ID)
		pending.add(d.ID, Location{PackID: packID, Type: d.Type, Offset: d.Offset, EncodedLen: d.EncodedLen, RawLen: d.RawLen})
	}
	shouldFinalize := pending.len() >= MaxBlobsPerIndex || time.Since(pending.createdAt) > FlushTimeout
	mi.mu.Unlock()

	if shouldFinalize {
		return mi.finalizeOne(p, pending)
	}
	return nil
}

func (mi *MasterIndex) finalizeOne(p Persister, ix *Index) error {
	id, data, err := mi.finalizeBytes(ix)
	if err != nil {
		return err
	}
	if err := p.SaveIndex(id, data); err != nil {
		return err
	}
	mi.mu.Lock()
	if mi.pending == ix {
		mi.pending = nil
	}
	ix.finalized = true
	ix.id = id
	mi.finalized = append(mi.finalized, ix)
	mi.mu.Unlock()
	return nil
}

func (mi *MasterIndex) finalizeBytes(ix *Index) (blob.ID, []byte, error) {
	data, err := ix.Marshal()
	if err != nil {
		return blob.ID{}, nil, err
	}
	return blob.Compute(data), data, nil
}

// Save finalizes and persists any still-pending Index (called by
// Repository.Flush and at graceful shutdown).
func (mi *MasterIndex) Save(p Persister) error {
	mi.mu.Lock()
	pending := mi.pending
	mi.mu.Unlock()
	if pending == nil || pending.len() == 0 {
		return nil
	}
	return mi.finalizeOne(p, pending)
}

// AllEntries returns every (ID, Location) pair across every finalized
// Index plus the pending one, used by GC to enumerate which blobs a
// given pack holds.
func (mi *MasterIndex) AllEntries() []LocEntry {
	mi.mu.RLock()
	pending := mi.pending
	finalized := mi.finalized
	mi.mu.RUnlock()

	var out []LocEntry
	if pending != nil {
		out = append(out, pending.Entries()...)
	}
	for _, ix := range finalized {
		out = append(out, ix.Entries()...)
	}
	return out
}

// AllIndexIDs returns the IDs of every currently finalized Index file.
func (mi *MasterIndex) AllIndexIDs() []blob.ID {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	ids := make([]blob.ID, 0, len(mi.finalized))
	for _, ix := range mi.finalized {
		ids = append(ids, ix.id)
	}
	return ids
}

// Cleanup removes every entry referencing a pack in removedPacks, and
// rewrites the finalized Index set, merging affected (now-pending)
// Indices together and leaving untouched Indices alone. It persists
// the merged Index through p, removes the replaced Index files through
// p.RemoveIndex, and returns the IDs of those removed Index files.
func (mi *MasterIndex) Cleanup(p Persister, removedPacks []blob.ID) (staleIndexIDs []blob.ID, err error) {
	removed := make(map[blob.ID]bool, len(removedPacks))
	for _, id := range removedPacks {
		removed[id] = true
	}

	mi.mu.Lock()
	var keep []*Index
	merged := newIndex()
	var dirtyOld []blob.ID
	for _, ix := range mi.finalized {
		changed := ix.removePacks(removed)
		if !changed {
			keep = append(keep, ix)
			continue
		}
		dirtyOld = append(dirtyOld, ix.id)
		mergeIndexInto(merged, ix)
	}
	mi.finalized = keep
	mi.mu.Unlock()

	if merged.len() > 0 {
		if err := mi.finalizeOne(p, merged); err != nil {
			return nil, err
		}
	}
	for _, id := range dirtyOld {
		if err := p.RemoveIndex(id); err != nil {
			return nil, err
		}
	}
	return dirtyOld, nil
}

func mergeIndexInto(dst, src *Index) {
	src.mu.RLock()
	defer src.mu.RUnlock()
	for id, e := range src.data {
		dst.add(id, src.toLocation(e))
	}
	for id, e := range src.tree {
		dst.add(id, src.toLocation(e))
	}
}
