package streamers

import (
	"io"
	"strings"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// BlobLoader is the narrow Repository capability SerializedNodeStreamer
// needs: fetching and decoding a single Tree blob by ID. Kept as a
// local interface to avoid an import cycle with pkg/repository.
type BlobLoader interface {
	LoadBlob(id blob.ID) ([]byte, error)
}

// treeFrame walks one loaded Tree's children.
type treeFrame struct {
	path     string
	children []treemodel.Node
	idx      int
}

// SerializedNodeStreamer walks a stored Tree (no filesystem access),
// loading child Tree blobs lazily as it descends, in the same
// pre-order / lexicographic contract as FSNodeStreamer.
type SerializedNodeStreamer struct {
	loader   BlobLoader
	stack    []*treeFrame
	includes []string
	excludes []string
}

// NewSerializedNodeStreamer returns a streamer over the tree rooted at
// rootTree, anchored at rootPath (so its Items line up with an
// FSNodeStreamer over the same logical paths). includes/excludes are
// optional path filters; when includes is non-empty, only paths that
// are a prefix of, or prefixed by, an include entry are emitted.
func NewSerializedNodeStreamer(loader BlobLoader, rootPath string, rootTree blob.ID, includes, excludes []string) (*SerializedNodeStreamer, error) {
	s := &SerializedNodeStreamer{loader: loader, includes: includes, excludes: excludes}
	tree, err := s.loadTree(rootTree)
	if err != nil {
		return nil, err
	}
	s.stack = []*treeFrame{{path: rootPath, children: tree.Children}}
	return s, nil
}

func (s *SerializedNodeStreamer) loadTree(id blob.ID) (treemodel.Tree, error) {
	data, err := s.loader.LoadBlob(id)
	if err != nil {
		return treemodel.Tree{}, err
	}
	return treemodel.UnmarshalTree(data)
}

func (s *SerializedNodeStreamer) excluded(path string) bool {
	for _, ex := range s.excludes {
		if ex == path || strings.HasPrefix(path, ex+"/") {
			return true
		}
	}
	return false
}

func (s *SerializedNodeStreamer) included(path string) bool {
	if len(s.includes) == 0 {
		return true
	}
	for _, in := range s.includes {
		if path == in || strings.HasPrefix(path, in+"/") || strings.HasPrefix(in, path+"/") {
			return true
		}
	}
	return false
}

// Next returns the next Item in pre-order, or io.EOF when exhausted.
func (s *SerializedNodeStreamer) Next() (Item, error) {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		if top.idx >= len(top.children) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		node := top.children[top.idx]
		top.idx++
		path := joinPath(top.path, node.Name)

		if s.excluded(path) || !s.included(path) {
			continue
		}

		if node.Type == treemodel.NodeDirectory && node.Tree != nil {
			tree, err := s.loadTree(*node.Tree)
			if err != nil {
				return Item{}, err
			}
			s.stack = append(s.stack, &treeFrame{path: path, children: tree.Children})
			return Item{Path: path, Node: node, NumChildren: len(tree.Children)}, nil
		}
		return Item{Path: path, Node: node}, nil
	}
	return Item{}, io.EOF
}
