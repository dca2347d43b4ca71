// Package index implements the MasterIndex: the in-memory mapping
// from blob fingerprint to pack location, backed by zero or more
// finalized Index files plus a pending-blobs set for in-flight dedup.
// Each Index file holds two typed maps (Data, Tree); MasterIndex is a
// read/write-locked aggregate over all of them.
package index

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jLantxa/backup/pkg/blob"
)

// MaxBlobsPerIndex is the point at which a pending Index is finalized
// even if the flush timeout hasn't elapsed.
const MaxBlobsPerIndex = 65535

// FlushTimeout is how long a pending Index may accumulate entries
// before being finalized regardless of size.
const FlushTimeout = 10 * time.Minute

// Location is where a blob's encoded bytes live.
type Location struct {
	PackID     blob.ID
	Type       blob.Type
	Offset     int64
	EncodedLen int64
	RawLen     int64
}

// entry is one blob's location, prior to having its pack ID resolved
// against the owning Index's compact pack table. packRef is that
// compact array index; it keeps repeated pack IDs in a large Index
// from being stored once per blob.
type entry struct {
	packRef    int
	typ        blob.Type
	offset     int64
	encodedLen int64
	rawLen     int64
}

// Index is one persisted (or pending) group: a small table of pack
// IDs referenced by this Index, plus per-blob-type location maps.
type Index struct {
	mu       sync.RWMutex
	id       blob.ID
	finalized bool
	createdAt time.Time

	packs   []blob.ID
	packRef map[blob.ID]int

	data map[blob.ID]entry
	tree map[blob.ID]entry
}

func newIndex() *Index {
	return &Index{
		createdAt: time.Now(),
		packRef:   make(map[blob.ID]int),
		data:      make(map[blob.ID]entry),
		tree:      make(map[blob.ID]entry),
	}
}

func (ix *Index) packIndex(id blob.ID) int {
	if i, ok := ix.packRef[id]; ok {
		return i
	}
	ix.packs = append(ix.packs, id)
	i := len(ix.packs) - 1
	ix.packRef[id] = i
	return i
}

func (ix *Index) mapFor(typ blob.Type) map[blob.ID]entry {
	if typ == blob.TypeTree {
		return ix.tree
	}
	return ix.data
}

func (ix *Index) add(id blob.ID, loc Location) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ref := ix.packIndex(loc.PackID)
	ix.mapFor(loc.Type)[id] = entry{packRef: ref, typ: loc.Type, offset: loc.Offset, encodedLen: loc.EncodedLen, rawLen: loc.RawLen}
}

func (ix *Index) get(id blob.ID) (Location, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e, ok := ix.data[id]; ok {
		return ix.toLocation(e), true
	}
	if e, ok := ix.tree[id]; ok {
		return ix.toLocation(e), true
	}
	return Location{}, false
}

func (ix *Index) toLocation(e entry) Location {
	return Location{PackID: ix.packs[e.packRef], Type: e.typ, Offset: e.offset, EncodedLen: e.encodedLen, RawLen: e.rawLen}
}

func (ix *Index) contains(id blob.ID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.data[id]
	if ok {
		return true
	}
	_, ok = ix.tree[id]
	return ok
}

// LocEntry pairs a blob ID with its Location, used by GC to enumerate
// every blob a given pack holds.
type LocEntry struct {
	ID  blob.ID
	Loc Location
}

// Entries returns every (ID, Location) pair this Index holds.
func (ix *Index) Entries() []LocEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]LocEntry, 0, len(ix.data)+len(ix.tree))
	for id, e := range ix.data {
		out = append(out, LocEntry{ID: id, Loc: ix.toLocation(e)})
	}
	for id, e := range ix.tree {
		out = append(out, LocEntry{ID: id, Loc: ix.toLocation(e)})
	}
	return out
}

func (ix *Index) len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.data) + len(ix.tree)
}

// removePacks deletes every entry referencing any of the given pack
// IDs, returning whether anything was removed.
func (ix *Index) removePacks(removed map[blob.ID]bool) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	any := false
	for id, e := range ix.data {
		if removed[ix.packs[e.packRef]] {
			delete(ix.data, id)
			any = true
		}
	}
	for id, e := range ix.tree {
		if removed[ix.packs[e.packRef]] {
			delete(ix.tree, id)
			any = true
		}
	}
	return any
}

// wireIndex is the on-disk JSON shape of one Index file: a pack-ID
// table plus per-pack blob descriptor groups, persisted as an array
// of {pack_id, [blob descriptor...]} groups.
type wireIndex struct {
	Packs []wirePackGroup `json:"packs"`
}

type wirePackGroup struct {
	PackID string        `json:"pack_id"`
	Blobs  []wireLocEntry `json:"blobs"`
}

type wireLocEntry struct {
	ID         string `json:"id"`
	Type       uint8  `json:"type"`
	Offset     int64  `json:"offset"`
	EncodedLen int64  `json:"encoded_length"`
	RawLen     int64  `json:"raw_length"`
}

// Marshal serializes ix into its canonical on-disk JSON form, grouped
// by pack for compactness.
func (ix *Index) Marshal() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	groups := make(map[int][]wireLocEntry)
	addAll := func(m map[blob.ID]entry) {
		for id, e := range m {
			groups[e.packRef] = append(groups[e.packRef], wireLocEntry{
				ID: id.String(), Type: uint8(e.typ), Offset: e.offset,
				EncodedLen: e.encodedLen, RawLen: e.rawLen,
			})
		}
	}
	addAll(ix.data)
	addAll(ix.tree)

	wire := wireIndex{}
	for i, packID := range ix.packs {
		wire.Packs = append(wire.Packs, wirePackGroup{PackID: packID.String(), Blobs: groups[i]})
	}
	return json.Marshal(wire)
}

// unmarshalIndex parses a persisted Index file's bytes.
func unmarshalIndex(data []byte, id blob.ID) (*Index, error) {
	var wire wireIndex
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	ix := newIndex()
	ix.id = id
	ix.finalized = true
	for _, g := range wire.Packs {
		packID, err := blob.ParseID(g.PackID)
		if err != nil {
			return nil, err
		}
		ref := ix.packIndex(packID)
		for _, b := range g.Blobs {
			bid, err := blob.ParseID(b.ID)
			if err != nil {
				return nil, err
			}
			e := entry{packRef: ref, typ: blob.Type(b.Type), offset: b.Offset, encodedLen: b.EncodedLen, rawLen: b.RawLen}
			ix.mapFor(e.typ)[bid] = e
		}
	}
	return ix, nil
}
