package repository

import (
	"fmt"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/index"
	"github.com/jLantxa/backup/pkg/pack"
	"github.com/jLantxa/backup/pkg/packsaver"
)

// treeCacheCapacity bounds how many decoded Tree blobs LoadBlob keeps
// around. Trees are small and repeatedly revisited (shared parent
// directories across a diff walk, and across the snapshots a single
// `stats`/gc reachability scan unions), so caching them avoids a
// repeated seek-read-decrypt-decompress per revisit; Data blobs are
// typically each read once and aren't worth the memory.
const treeCacheCapacity = 4096

// EncodeAndSaveBlob computes (or accepts, if saveID is non-nil) the
// blob's ID, short-circuits on dedup, and otherwise encrypts the
// plaintext, appends it to the matching Packer, and flushes that
// Packer if it has crossed the configured pack size.
//
// For every blob B written via EncodeAndSaveBlob, Contains(id(B)) is
// true immediately after return; two calls with byte-equal plaintext
// and the same type perform one encode and return the same ID.
func (r *Repository) EncodeAndSaveBlob(typ blob.Type, data []byte, saveID *blob.ID) (blob.ID, error) {
	id := blob.Compute(data)
	if saveID != nil {
		id = *saveID
	}

	if r.idx.Contains(id) {
		return id, nil
	}
	if !r.idx.AddPendingBlob(id) {
		// Another goroutine is already encoding this same blob.
		return id, nil
	}

	encoded, err := r.env.Encode(data)
	if err != nil {
		return id, err
	}

	if err := r.addToPacker(typ, id, encoded, int64(len(data))); err != nil {
		return id, err
	}
	return id, nil
}

func (r *Repository) addToPacker(typ blob.Type, id blob.ID, encoded []byte, rawLen int64) error {
	r.packMu.Lock()
	p := r.packerFor(typ)
	p.AddBlob(id, encoded, rawLen)
	var flushed *pack.FlushedPack
	var err error
	if p.Size() >= r.cfg.PackSize {
		flushed, err = p.Flush(r.env)
	}
	r.packMu.Unlock()
	if err != nil {
		return err
	}
	if flushed == nil {
		return nil
	}
	return r.submitFlushedPack(flushed)
}

func (r *Repository) packerFor(typ blob.Type) *pack.Packer {
	if typ == blob.TypeTree {
		return r.treePacker
	}
	return r.dataPacker
}

// submitFlushedPack hands a just-flushed pack to the PackSaver and
// records its descriptors in the MasterIndex.
func (r *Repository) submitFlushedPack(flushed *pack.FlushedPack) error {
	r.saver.Submit(packsaver.Job{ID: flushed.ID, Bytes: flushed.Bytes})
	return r.idx.AddPack(r, flushed.ID, flushed.Descs)
}

// LoadBlob looks up id in the MasterIndex, reads its encoded bytes
// from the owning pack via a seek read, and decodes them through the
// secure envelope. It implements streamers.BlobLoader.
func (r *Repository) LoadBlob(id blob.ID) ([]byte, error) {
	loc, ok := r.idx.Get(id)
	if !ok {
		return nil, backuperrors.NotFoundf("repository: blob %s not found in index", id.String())
	}

	if loc.Type == blob.TypeTree {
		if data, ok := r.treeCache.Get(id); ok {
			return data, nil
		}
	}

	packPath := fmt.Sprintf("%s/%s/%s", objectsDir, loc.PackID.FanoutDir(), loc.PackID.String())
	encoded, err := r.b.SeekRead(packPath, loc.Offset, loc.EncodedLen)
	if err != nil {
		return nil, err
	}
	data, err := r.env.Decode(encoded)
	if err != nil {
		return nil, err
	}

	if loc.Type == blob.TypeTree {
		r.treeCache.Add(id, data)
	}
	return data, nil
}

// SaveIndex persists a finalized Index file. It implements
// index.Persister.
func (r *Repository) SaveIndex(id blob.ID, data []byte) error {
	encoded, err := r.env.Encode(data)
	if err != nil {
		return err
	}
	dest := fmt.Sprintf("%s/%s", indexDir, id.String())
	return backend.WriteAtomic(r.b, indexDir, dest, encoded)
}

// RemoveIndex deletes a stale Index file. It implements
// index.Persister.
func (r *Repository) RemoveIndex(id blob.ID) error {
	return r.b.Remove(fmt.Sprintf("%s/%s", indexDir, id.String()))
}

var _ index.Persister = (*Repository)(nil)
