package repository

import (
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/treemodel"
	"github.com/jLantxa/backup/pkg/treewalk"
)

// Stats is the repository-wide counters `stats` reports: unique blob
// counts and bytes across every snapshot, plus how many packs back
// them.
type Stats struct {
	Snapshots   int
	UniqueTrees int
	UniqueData  int
	UniqueBytes int64
	TotalBytes  int64
	Packs       int
}

// Stats computes repository-wide counters by unioning the reachable
// set of every snapshot (so a blob shared by two snapshots is counted
// once), reusing the same walk the garbage collector's plan phase
// runs for reachability.
func (r *Repository) Stats() (Stats, error) {
	snaps, err := r.allSnapshots()
	if err != nil {
		return Stats{}, err
	}
	reach, err := treewalk.Walk(r, snaps)
	if err != nil {
		return Stats{}, err
	}
	return r.summarize(reach, len(snaps))
}

// SnapshotStats computes the same counters restricted to a single
// snapshot's own reachable set (no union with other snapshots).
func (r *Repository) SnapshotStats(id blob.ID) (Stats, error) {
	data, err := r.ReadFile(FileSnapshot, id)
	if err != nil {
		return Stats{}, err
	}
	snap, err := treemodel.UnmarshalSnapshot(data)
	if err != nil {
		return Stats{}, err
	}
	reach, err := treewalk.WalkOne(r, snap)
	if err != nil {
		return Stats{}, err
	}
	return r.summarize(reach, 1)
}

func (r *Repository) summarize(reach *treewalk.Reachable, snapCount int) (Stats, error) {
	s := Stats{Snapshots: snapCount, UniqueTrees: len(reach.Trees), UniqueData: len(reach.Data)}
	packs := make(map[blob.ID]bool)
	for id := range reach.Trees {
		loc, ok := r.idx.Get(id)
		if !ok {
			continue
		}
		packs[loc.PackID] = true
		s.UniqueBytes += loc.RawLen
		s.TotalBytes += loc.EncodedLen
	}
	for id := range reach.Data {
		loc, ok := r.idx.Get(id)
		if !ok {
			continue
		}
		packs[loc.PackID] = true
		s.UniqueBytes += loc.RawLen
		s.TotalBytes += loc.EncodedLen
	}
	s.Packs = len(packs)
	return s, nil
}

// AllSnapshots loads every snapshot file in the repository, used by
// the GC planner's reachability scan and by `snapshots`/`log` listing.
func (r *Repository) AllSnapshots() ([]treemodel.Snapshot, error) {
	return r.allSnapshots()
}

func (r *Repository) allSnapshots() ([]treemodel.Snapshot, error) {
	ids, err := r.ListFiles(FileSnapshot)
	if err != nil {
		return nil, err
	}
	snaps := make([]treemodel.Snapshot, 0, len(ids))
	for _, id := range ids {
		data, err := r.ReadFile(FileSnapshot, id)
		if err != nil {
			return nil, err
		}
		snap, err := treemodel.UnmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
