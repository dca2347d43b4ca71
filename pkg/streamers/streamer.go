// Package streamers implements the three coordinated iterators that
// underlie the Archiver and Restorer: FSNodeStreamer (filesystem
// walk), SerializedNodeStreamer (stored tree walk), and
// NodeDiffStreamer (their merge).
//
// All three share a single Streamer contract and are implemented with
// an explicit frame stack rather than recursion, since filesystem
// depth is unbounded.
package streamers

import (
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Item is one entry a Streamer yields: the node's full logical path
// (the walk's root path with each name joined by "/") and the node
// itself. NumChildren is only meaningful for directories and counts
// immediate children.
type Item struct {
	Path        string
	Node        treemodel.Node
	NumChildren int
}

// Streamer yields Items in pre-order with siblings in ascending name
// order, so Paths ascend component by component (see comparePaths).
// Next returns io.EOF once exhausted.
type Streamer interface {
	Next() (Item, error)
}

// joinPath joins a parent path and a child name with "/", handling
// the root's empty-parent case without a leading slash artifact.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
