package repository

import (
	"fmt"

	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/gc"
)

// ListPacks enumerates every pack file under objects/, across all 256
// fanout subdirectories. It implements gc.Repo.
func (r *Repository) ListPacks() ([]blob.ID, error) {
	var ids []blob.ID
	for _, dir := range fanoutDirs() {
		entries, err := r.b.ReadDir(dir)
		if err != nil {
			return nil, backuperrors.Backendf(dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			id, err := blob.ParseID(e.Name())
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// PackLocations returns every (blob ID, Location) pair the MasterIndex
// holds for packID. It implements gc.Repo.
func (r *Repository) PackLocations(packID blob.ID) ([]gc.BlobRef, error) {
	var refs []gc.BlobRef
	for _, e := range r.idx.AllEntries() {
		if e.Loc.PackID == packID {
			refs = append(refs, gc.BlobRef{ID: e.ID, Loc: e.Loc})
		}
	}
	return refs, nil
}

// ReadPackBlob reads and decodes the blob at ref.Loc directly, without
// an index lookup (the caller already has the Location). It implements
// gc.Repo.
func (r *Repository) ReadPackBlob(ref gc.BlobRef) ([]byte, error) {
	packPath := fmt.Sprintf("%s/%s/%s", objectsDir, ref.Loc.PackID.FanoutDir(), ref.Loc.PackID.String())
	encoded, err := r.b.SeekRead(packPath, ref.Loc.Offset, ref.Loc.EncodedLen)
	if err != nil {
		return nil, err
	}
	return r.env.Decode(encoded)
}

// RemovePack deletes a pack file from objects/. It implements gc.Repo.
func (r *Repository) RemovePack(id blob.ID) error {
	path := fmt.Sprintf("%s/%s/%s", objectsDir, id.FanoutDir(), id.String())
	return r.b.Remove(path)
}

// CleanupIndex rewrites the MasterIndex, dropping every entry that
// referenced one of removedPacks. It implements gc.Repo.
func (r *Repository) CleanupIndex(removedPacks []blob.ID) error {
	_, err := r.idx.Cleanup(r, removedPacks)
	return err
}
