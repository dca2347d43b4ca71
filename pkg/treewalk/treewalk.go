// Package treewalk implements the reachability walk shared by the
// garbage collector's plan phase and the stats reporter: both need
// the same "every blob ID a snapshot's tree reaches" traversal, one
// to classify packs as garbage, the other to count bytes.
//
// Every tree's children are visited and every referenced blob is
// recorded in one of two blob.Type sets (Tree, Data), so a blob shared
// between snapshots appears once in the result.
package treewalk

import (
	"io"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/streamers"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Reachable is the set of blob IDs a single walk discovered, split by
// type so callers can report tree/data byte counts separately.
type Reachable struct {
	Trees map[blob.ID]bool
	Data  map[blob.ID]bool
}

func newReachable() *Reachable {
	return &Reachable{Trees: make(map[blob.ID]bool), Data: make(map[blob.ID]bool)}
}

// Walk traverses every snapshot's tree, recording every Tree and Data
// blob ID reachable from any of them into a single merged Reachable
// set. A snapshot whose root Tree was already recorded (by an earlier
// snapshot in the same call) is not walked again; a subtree shared by
// snapshots with different roots is walked once for each of them.
func Walk(loader streamers.BlobLoader, snapshots []treemodel.Snapshot) (*Reachable, error) {
	r := newReachable()
	for _, snap := range snapshots {
		if err := walkOne(loader, snap, r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WalkOne traverses a single snapshot's tree, returning just its own
// Reachable set (used by Repository.SnapshotStats, which reports
// per-snapshot counters rather than a repository-wide union).
func WalkOne(loader streamers.BlobLoader, snap treemodel.Snapshot) (*Reachable, error) {
	r := newReachable()
	if err := walkOne(loader, snap, r); err != nil {
		return nil, err
	}
	return r, nil
}

func walkOne(loader streamers.BlobLoader, snap treemodel.Snapshot, r *Reachable) error {
	if r.Trees[snap.RootTree] {
		return nil
	}
	stream, err := streamers.NewSerializedNodeStreamer(loader, snap.RootPath, snap.RootTree, nil, nil)
	if err != nil {
		return err
	}
	r.Trees[snap.RootTree] = true

	for {
		item, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		node := item.Node
		if node.Type == treemodel.NodeDirectory && node.Tree != nil {
			r.Trees[*node.Tree] = true
		}
		for _, id := range node.Blobs {
			r.Data[id] = true
		}
	}
	return nil
}
