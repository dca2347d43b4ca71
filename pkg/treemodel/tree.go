package treemodel

import (
	"encoding/json"
	"sort"

	"github.com/jLantxa/backup/pkg/blob"
)

// Tree is an ordered list of a directory's immediate children, sorted
// lexicographically by name so its serialization — and therefore its
// content-addressed ID — is canonical.
type Tree struct {
	Children []Node `json:"children"`
}

// Sorted returns a copy of t with Children sorted by name. Archiver
// callers are expected to already hand in sorted children; Sorted is
// the defensive canonicalization step Marshal always applies.
func (t Tree) Sorted() Tree {
	children := make([]Node, len(t.Children))
	copy(children, t.Children)
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return Tree{Children: children}
}

// Marshal produces the canonical plaintext of t: sorted children,
// compact JSON, no trailing whitespace, so hash(Marshal(t)) is stable
// and content-addressed.
func (t Tree) Marshal() ([]byte, error) {
	return json.Marshal(t.Sorted())
}

// UnmarshalTree parses a Tree blob's plaintext.
func UnmarshalTree(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, err
	}
	return t, nil
}

// ID computes the content-addressed ID of t's canonical serialization.
func (t Tree) ID() (blob.ID, error) {
	data, err := t.Marshal()
	if err != nil {
		return blob.ID{}, err
	}
	return blob.Compute(data), nil
}
