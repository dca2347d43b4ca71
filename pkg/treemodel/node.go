// Package treemodel defines the directory-tree data model: Nodes,
// Trees, Snapshots, the repository Manifest, and KeyFiles, along with
// their canonical serializations.
package treemodel

import (
	"encoding/json"
	"time"

	"github.com/jLantxa/backup/pkg/blob"
)

// NodeType is the variant tag of a Node.
type NodeType string

const (
	NodeFile        NodeType = "file"
	NodeDirectory   NodeType = "dir"
	NodeSymlink     NodeType = "symlink"
	NodeBlockDevice NodeType = "block_device"
	NodeCharDevice  NodeType = "char_device"
	NodeFifo        NodeType = "fifo"
	NodeSocket      NodeType = "socket"
)

// Meta is the metadata every Node carries, independent of its type.
type Meta struct {
	Size  int64     `json:"size"`
	Mtime time.Time `json:"mtime"`
	Atime time.Time `json:"atime"`
	Mode  uint32    `json:"mode"`
	UID   uint32    `json:"uid"`
	GID   uint32    `json:"gid"`
}

// Equal reports whether two Metas are identical under the
// NodeDiffStreamer's "Changed" predicate fields (size, mtime, mode,
// uid, gid). atime is deliberately excluded: it changes on mere reads
// and would otherwise mark unmodified files Changed.
func (m Meta) Equal(o Meta) bool {
	return m.Size == o.Size && m.Mtime.Equal(o.Mtime) && m.Mode == o.Mode && m.UID == o.UID && m.GID == o.GID
}

// Node is one entry in a Tree: a file, directory, symlink, or special
// file, plus its name within the parent directory.
type Node struct {
	Name string   `json:"name"`
	Type NodeType `json:"type"`
	Meta Meta     `json:"meta"`

	// Blobs holds the ordered content blob IDs for a File Node.
	Blobs []blob.ID `json:"blobs,omitempty"`

	// Tree holds the child Tree blob ID for a Directory Node.
	Tree *blob.ID `json:"tree,omitempty"`

	// LinkTarget holds a Symlink's target path.
	LinkTarget string `json:"link_target,omitempty"`

	// TargetIsDir records whether LinkTarget refers to a directory,
	// used to pick file-vs-directory symlink creation on hosts where
	// that distinction exists. It is absent on sources where the
	// distinction could not be determined, and restoration then falls
	// back to file-symlink semantics.
	TargetIsDir *bool `json:"target_is_dir,omitempty"`
}

// wireNode is the canonical JSON shape of a Node: fields in a stable
// order, with the optional blobs/tree/link_target/target_is_dir fields
// omitted when empty, so Marshal is deterministic across runs.
type wireNode struct {
	Name        string   `json:"name"`
	Type        NodeType `json:"type"`
	Size        int64    `json:"size"`
	Mtime       string   `json:"mtime"`
	Atime       string   `json:"atime"`
	Mode        uint32   `json:"mode"`
	UID         uint32   `json:"uid"`
	GID         uint32   `json:"gid"`
	Blobs       []string `json:"blobs,omitempty"`
	Tree        string   `json:"tree,omitempty"`
	LinkTarget  string   `json:"link_target,omitempty"`
	TargetIsDir *bool    `json:"target_is_dir,omitempty"`
}

func (n Node) wire() wireNode {
	w := wireNode{
		Name: n.Name, Type: n.Type,
		Size: n.Meta.Size, Mode: n.Meta.Mode, UID: n.Meta.UID, GID: n.Meta.GID,
		Mtime: n.Meta.Mtime.UTC().Format(time.RFC3339Nano),
		Atime: n.Meta.Atime.UTC().Format(time.RFC3339Nano),
		LinkTarget: n.LinkTarget, TargetIsDir: n.TargetIsDir,
	}
	for _, b := range n.Blobs {
		w.Blobs = append(w.Blobs, b.String())
	}
	if n.Tree != nil {
		w.Tree = n.Tree.String()
	}
	return w
}

func (w wireNode) node() (Node, error) {
	n := Node{
		Name: w.Name, Type: w.Type,
		Meta: Meta{Size: w.Size, Mode: w.Mode, UID: w.UID, GID: w.GID},
		LinkTarget: w.LinkTarget, TargetIsDir: w.TargetIsDir,
	}
	var err error
	if n.Meta.Mtime, err = time.Parse(time.RFC3339Nano, w.Mtime); err != nil {
		return Node{}, err
	}
	if n.Meta.Atime, err = time.Parse(time.RFC3339Nano, w.Atime); err != nil {
		return Node{}, err
	}
	for _, s := range w.Blobs {
		id, err := blob.ParseID(s)
		if err != nil {
			return Node{}, err
		}
		n.Blobs = append(n.Blobs, id)
	}
	if w.Tree != "" {
		id, err := blob.ParseID(w.Tree)
		if err != nil {
			return Node{}, err
		}
		n.Tree = &id
	}
	return n, nil
}

// MarshalJSON gives Node a stable field order regardless of struct
// tag ordering quirks, by routing through wireNode.
func (n Node) MarshalJSON() ([]byte, error) { return json.Marshal(n.wire()) }

// UnmarshalJSON parses the canonical wire form back into a Node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := w.node()
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
