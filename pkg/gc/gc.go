// Package gc implements the garbage collector's plan and execute
// phases: reachability scanning, obsolete/small pack classification,
// repacking, and MasterIndex cleanup. Plan and Execute are split so a
// dry-run report can be produced without mutating anything.
package gc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/index"
	"github.com/jLantxa/backup/pkg/streamers"
	"github.com/jLantxa/backup/pkg/treemodel"
	"github.com/jLantxa/backup/pkg/treewalk"
)

// RepackWorkers is the fixed repack pool size, not configurable.
const RepackWorkers = 4

// MinFactor is the fraction of defaultPackSize below which a pack's
// kept (still-referenced) size marks it "small", a merge candidate.
const MinFactor = 0.05

// ObsoleteTolerance is the garbage-fraction threshold above which a
// referenced pack is "obsolete" and fully repacked: 25% was chosen as
// the point past which a pack carries more dead weight than live data
// is worth keeping around (see DESIGN.md).
const ObsoleteTolerance = 0.25

const defaultPackSize = 16 << 20

// BlobRef pairs a blob's ID with its on-disk Location, the unit
// PackLocations and ReadPackBlob operate on.
type BlobRef struct {
	ID  blob.ID
	Loc index.Location
}

// Repo is the narrow Repository capability the GC needs.
type Repo interface {
	streamers.BlobLoader
	EncodeAndSaveBlob(typ blob.Type, data []byte, saveID *blob.ID) (blob.ID, error)
	Flush() error
	ListPacks() ([]blob.ID, error)
	PackLocations(id blob.ID) ([]BlobRef, error)
	ReadPackBlob(ref BlobRef) ([]byte, error)
	RemovePack(id blob.ID) error
	CleanupIndex(removedPacks []blob.ID) error
}

// PackClass is the plan phase's classification of one on-disk pack.
type PackClass int

const (
	ClassLive PackClass = iota
	ClassUnused
	ClassTolerated
	ClassObsolete
	ClassSmall
)

// PackInfo is the plan phase's per-pack verdict.
type PackInfo struct {
	ID           blob.ID
	Class        PackClass
	KeptBytes    int64
	GarbageBytes int64
}

// Plan is the result of the plan phase: every on-disk pack's
// classification, ready for Execute (or just reporting, for a
// dry-run `gc --dry-run`). reach is carried along so Execute's
// repack step can skip blobs that are no longer referenced instead of
// copying them forward unchanged.
type Plan struct {
	Packs []PackInfo

	reach *treewalk.Reachable
}

// ToRepack returns the IDs of every obsolete pack, plus every small
// pack if at least two are eligible to merge.
func (p Plan) ToRepack() []blob.ID {
	var obsolete, small []blob.ID
	for _, pi := range p.Packs {
		switch pi.Class {
		case ClassObsolete:
			obsolete = append(obsolete, pi.ID)
		case ClassSmall:
			small = append(small, pi.ID)
		}
	}
	if len(small) >= 2 {
		obsolete = append(obsolete, small...)
	}
	return obsolete
}

func (p Plan) unused() []blob.ID {
	var ids []blob.ID
	for _, pi := range p.Packs {
		if pi.Class == ClassUnused {
			ids = append(ids, pi.ID)
		}
	}
	return ids
}

// GC coordinates the plan and execute phases over a Repo.
type GC struct {
	repo Repo
}

// New returns a GC over repo.
func New(repo Repo) *GC {
	return &GC{repo: repo}
}

// Plan enumerates every snapshot's reachable blobs, walks every
// on-disk pack, and classifies each.
func (g *GC) Plan(snapshots []treemodel.Snapshot) (Plan, error) {
	reach, err := treewalk.Walk(g.repo, snapshots)
	if err != nil {
		return Plan{}, err
	}
	referenced := func(ref BlobRef) bool {
		if ref.Loc.Type == blob.TypeTree {
			return reach.Trees[ref.ID]
		}
		return reach.Data[ref.ID]
	}

	packIDs, err := g.repo.ListPacks()
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{reach: reach}
	for _, packID := range packIDs {
		refs, err := g.repo.PackLocations(packID)
		if err != nil {
			return Plan{}, err
		}
		info := PackInfo{ID: packID}
		anyReferenced := false
		for _, ref := range refs {
			if referenced(ref) {
				anyReferenced = true
				info.KeptBytes += ref.Loc.EncodedLen
			} else {
				info.GarbageBytes += ref.Loc.EncodedLen
			}
		}
		switch {
		case !anyReferenced:
			info.Class = ClassUnused
		case float64(info.GarbageBytes) > ObsoleteTolerance*float64(info.KeptBytes+info.GarbageBytes):
			info.Class = ClassObsolete
		case float64(info.KeptBytes) < MinFactor*float64(defaultPackSize):
			info.Class = ClassSmall
		default:
			info.Class = ClassTolerated
		}
		plan.Packs = append(plan.Packs, info)
	}
	return plan, nil
}

// Execute runs the execute phase against a previously computed Plan:
// delete unused packs, repack obsolete/small packs through a 4-worker
// pool, clean up the MasterIndex, and finally delete the
// obsolete/small pack files themselves. Ordering tolerates
// interruption: new packs/indices are written before old ones are
// deleted.
func (g *GC) Execute(plan Plan) error {
	for _, id := range plan.unused() {
		if err := g.repo.RemovePack(id); err != nil {
			return err
		}
	}

	toRepack := plan.ToRepack()
	if len(toRepack) > 0 {
		if err := g.repack(toRepack, plan.reach); err != nil {
			return err
		}
		if err := g.repo.Flush(); err != nil {
			return err
		}
	}

	if err := g.repo.CleanupIndex(toRepack); err != nil {
		return err
	}

	for _, id := range toRepack {
		if err := g.repo.RemovePack(id); err != nil {
			return err
		}
	}
	return nil
}

// repack re-encodes every still-referenced blob in the given packs
// into brand-new packs via EncodeAndSaveBlob, through a fixed worker
// pool built on errgroup, the same shape packsaver.Saver uses. Blobs
// reach no longer marks as reachable are skipped rather than copied
// forward, so garbage is actually dropped instead of surviving
// unchanged in the new packs; reach nil treats everything as
// referenced (for tests exercising repack in isolation, without a
// Plan).
func (g *GC) repack(packIDs []blob.ID, reach *treewalk.Reachable) error {
	referenced := func(ref BlobRef) bool {
		if reach == nil {
			return true
		}
		if ref.Loc.Type == blob.TypeTree {
			return reach.Trees[ref.ID]
		}
		return reach.Data[ref.ID]
	}

	eg, ctx := errgroup.WithContext(context.Background())
	jobs := make(chan BlobRef, RepackWorkers*2)

	worker := func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ref, ok := <-jobs:
				if !ok {
					return nil
				}
				data, err := g.repo.ReadPackBlob(ref)
				if err != nil {
					return err
				}
				if _, err := g.repo.EncodeAndSaveBlob(ref.Loc.Type, data, nil); err != nil {
					return err
				}
			}
		}
	}
	for i := 0; i < RepackWorkers; i++ {
		eg.Go(worker)
	}

	for _, packID := range packIDs {
		packRefs, err := g.repo.PackLocations(packID)
		if err != nil {
			close(jobs)
			_ = eg.Wait()
			return err
		}
		for _, ref := range packRefs {
			if !referenced(ref) {
				continue
			}
			select {
			case jobs <- ref:
			case <-ctx.Done():
			}
		}
	}
	close(jobs)

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("gc: repack: %w", err)
	}
	return nil
}
