package streamers

import (
	"io"
	"strings"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// DiffKind classifies one merged step of a NodeDiffStreamer.
type DiffKind int

const (
	New DiffKind = iota
	Deleted
	Changed
	Unchanged
)

func (k DiffKind) String() string {
	switch k {
	case New:
		return "new"
	case Deleted:
		return "deleted"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// DiffItem is one step of the merged stream: the shared path, the
// previous node (nil if New) and the next node (nil if Deleted), and
// the classification.
type DiffItem struct {
	Path string
	Prev *treemodel.Node
	Next *treemodel.Node
	Kind DiffKind

	PrevNumChildren int
	NextNumChildren int
}

// NodeDiffStreamer merges a "previous" stream (typically a
// SerializedNodeStreamer over the parent snapshot) and a "next"
// stream (typically an FSNodeStreamer over the live source) that
// share the same lexicographic-path ordering contract.
//
// An error from either side is returned immediately without
// attempting to drain or resync the other; the caller — the Archiver
// — treats any error here as fatal.
type NodeDiffStreamer struct {
	prev, next                 Streamer
	prevItem, nextItem         *Item
	prevDone, nextDone         bool
}

// NewNodeDiffStreamer returns a merger of prev and next. prev may be
// nil, meaning there is no parent snapshot: every next item is then
// New.
func NewNodeDiffStreamer(prev, next Streamer) *NodeDiffStreamer {
	return &NodeDiffStreamer{prev: prev, next: next}
}

func (d *NodeDiffStreamer) fillPrev() error {
	if d.prevItem != nil || d.prevDone || d.prev == nil {
		return nil
	}
	item, err := d.prev.Next()
	if err == io.EOF {
		d.prevDone = true
		return nil
	}
	if err != nil {
		return err
	}
	d.prevItem = &item
	return nil
}

func (d *NodeDiffStreamer) fillNext() error {
	if d.nextItem != nil || d.nextDone {
		return nil
	}
	item, err := d.next.Next()
	if err == io.EOF {
		d.nextDone = true
		return nil
	}
	if err != nil {
		return err
	}
	d.nextItem = &item
	return nil
}

// Next returns the next merged DiffItem, or io.EOF once both streams
// are exhausted. Output Path is monotonically non-decreasing.
func (d *NodeDiffStreamer) Next() (DiffItem, error) {
	if err := d.fillPrev(); err != nil {
		return DiffItem{}, err
	}
	if err := d.fillNext(); err != nil {
		return DiffItem{}, err
	}

	switch {
	case d.prevItem == nil && d.nextItem == nil:
		return DiffItem{}, io.EOF

	case d.prevItem == nil:
		return d.emitNew()

	case d.nextItem == nil:
		return d.emitDeleted()
	}

	switch cmp := comparePaths(d.prevItem.Path, d.nextItem.Path); {
	case cmp < 0:
		return d.emitDeleted()
	case cmp > 0:
		return d.emitNew()
	default:
		return d.emitMatch()
	}
}

// comparePaths orders a and b the way both streamers actually produce
// paths: component by component, not byte by byte. Raw string
// comparison disagrees with pre-order DFS whenever one path is a
// directory that is a proper prefix of a sibling name followed by a
// byte less than '/' (e.g. "config.yaml" < "config/bar" by raw bytes,
// since '.' < '/', even though "config/bar" is config's descendant
// and must sort first).
func comparePaths(a, b string) int {
	ac := strings.Split(a, "/")
	bc := strings.Split(b, "/")
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if ac[i] != bc[i] {
			if ac[i] < bc[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ac) < len(bc):
		return -1
	case len(ac) > len(bc):
		return 1
	default:
		return 0
	}
}

func (d *NodeDiffStreamer) emitNew() (DiffItem, error) {
	item := d.nextItem
	d.nextItem = nil
	n := item.Node
	return DiffItem{Path: item.Path, Next: &n, Kind: New, NextNumChildren: item.NumChildren}, nil
}

func (d *NodeDiffStreamer) emitDeleted() (DiffItem, error) {
	item := d.prevItem
	d.prevItem = nil
	p := item.Node
	return DiffItem{Path: item.Path, Prev: &p, Kind: Deleted, PrevNumChildren: item.NumChildren}, nil
}

func (d *NodeDiffStreamer) emitMatch() (DiffItem, error) {
	prev, next := d.prevItem, d.nextItem
	d.prevItem, d.nextItem = nil, nil

	p, n := prev.Node, next.Node
	kind := Unchanged
	if !p.Meta.Equal(n.Meta) || p.Type != n.Type {
		kind = Changed
	}
	return DiffItem{
		Path: prev.Path, Prev: &p, Next: &n, Kind: kind,
		PrevNumChildren: prev.NumChildren, NextNumChildren: next.NumChildren,
	}, nil
}
