package repository

import (
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// AmendSnapshot rewrites a snapshot's tags and description without
// re-walking the filesystem. Snapshots are content-addressed, so
// mutating tags changes the ID: the old snapshot file is replaced by
// a new one that keeps every other field — including Parent,
// preserving the history chain SnapshotHistory walks.
func (r *Repository) AmendSnapshot(id blob.ID, newTags []string, newDescription string) (blob.ID, error) {
	data, err := r.ReadFile(FileSnapshot, id)
	if err != nil {
		return blob.ID{}, err
	}
	snap, err := treemodel.UnmarshalSnapshot(data)
	if err != nil {
		return blob.ID{}, err
	}

	snap.Tags = newTags
	snap.Description = newDescription

	amended, err := snap.Marshal()
	if err != nil {
		return blob.ID{}, err
	}
	newID, err := r.SaveFile(FileSnapshot, amended)
	if err != nil {
		return blob.ID{}, err
	}
	if newID == id {
		// Tags/description were already exactly these values.
		return newID, nil
	}
	if err := r.b.Remove(snapshotPath(id)); err != nil {
		return newID, backuperrors.Backendf(snapshotPath(id), err)
	}
	return newID, nil
}

// SnapshotHistory walks id's Parent chain, returning the snapshots
// from oldest ancestor to id itself.
func (r *Repository) SnapshotHistory(id blob.ID) ([]treemodel.Snapshot, error) {
	var chain []treemodel.Snapshot
	cur := id
	for {
		data, err := r.ReadFile(FileSnapshot, cur)
		if err != nil {
			return nil, err
		}
		snap, err := treemodel.UnmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		chain = append(chain, snap)
		if snap.Parent == nil {
			break
		}
		cur = *snap.Parent
	}
	// Reverse into oldest-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func snapshotPath(id blob.ID) string {
	return snapshotsDir + "/" + id.String()
}
