package streamers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// virtualNode is one node of the synthetic prefix tree joining
// disjoint source paths under their longest common prefix. Leaves
// (isSource == true) are real filesystem roots to be walked from
// disk; internal nodes exist only to preserve ordering and have no
// on-disk counterpart.
type virtualNode struct {
	name     string
	fullPath string
	isSource bool
	children []*virtualNode // sorted by name
}

func (v *virtualNode) childNamed(name string) *virtualNode {
	for _, c := range v.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (v *virtualNode) addChild(c *virtualNode) {
	v.children = append(v.children, c)
	sort.Slice(v.children, func(i, j int) bool { return v.children[i].name < v.children[j].name })
}

// buildVirtualRoot returns the container node whose children are the
// (possibly synthetic) entry points into each source. For a single
// source it returns a container directly wrapping that source (no
// synthesis, no intermediate paths emitted).
func buildVirtualRoot(sources []string) (*virtualNode, string, error) {
	if len(sources) == 0 {
		return nil, "", fmt.Errorf("fsstreamer: no source paths")
	}
	if len(sources) == 1 {
		root := &virtualNode{fullPath: filepath.Dir(sources[0])}
		root.addChild(&virtualNode{name: filepath.Base(sources[0]), fullPath: sources[0], isSource: true})
		return root, sources[0], nil
	}

	split := make([][]string, len(sources))
	for i, s := range sources {
		split[i] = splitClean(s)
	}
	lcpLen := len(split[0])
	for _, comps := range split[1:] {
		lcpLen = commonPrefixLen(lcpLen, split[0], comps)
	}
	lcp := split[0][:lcpLen]
	lcpPath := "/" + strings.Join(lcp, "/")
	if lcpPath == "/" {
		lcpPath = "/"
	}

	root := &virtualNode{fullPath: lcpPath}
	for i, comps := range split {
		cur := root
		curPath := lcpPath
		for j := lcpLen; j < len(comps); j++ {
			curPath = filepath.Join(curPath, comps[j])
			isLeaf := j == len(comps)-1
			child := cur.childNamed(comps[j])
			if child == nil {
				child = &virtualNode{name: comps[j], fullPath: curPath, isSource: isLeaf && curPath == sources[i]}
				cur.addChild(child)
			}
			cur = child
		}
	}
	return root, lcpPath, nil
}

func splitClean(p string) []string {
	clean := filepath.Clean(p)
	parts := strings.Split(clean, string(filepath.Separator))
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func commonPrefixLen(n int, a, b []string) int {
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// frame is one level of the explicit walk stack: either iterating a
// virtualNode's synthetic children, or a real directory's entries.
type frame struct {
	path     string
	virtual  []*virtualNode // non-nil while descending the synthetic prefix tree
	entries  []os.DirEntry  // non-nil while walking a real directory
	idx      int
}

// FSNodeStreamer is a depth-first pre-order walker over one or more
// canonicalized source paths, pruning excluded paths, emitting
// children in strict lexicographic order.
type FSNodeStreamer struct {
	excludes []string
	stack    []*frame
}

// NewFSNodeStreamer returns a streamer over sources, skipping any
// path for which an entry of excludes is a prefix. Both lists must
// already be canonicalized (absolute, cleaned) by the caller. Fails
// immediately if any source path does not exist.
func NewFSNodeStreamer(sources, excludes []string) (*FSNodeStreamer, error) {
	for _, s := range sources {
		if _, err := os.Lstat(s); err != nil {
			return nil, fmt.Errorf("fsstreamer: source %q: %w", s, err)
		}
	}
	root, _, err := buildVirtualRoot(sources)
	if err != nil {
		return nil, err
	}
	s := &FSNodeStreamer{excludes: excludes}
	s.stack = []*frame{{path: root.fullPath, virtual: root.children}}
	return s, nil
}

// RootPath returns the virtual-root path NewFSNodeStreamer would
// anchor sources at, without constructing a streamer. The Archiver
// uses this to anchor a SerializedNodeStreamer over the parent
// snapshot at the same logical paths.
func RootPath(sources []string) (string, error) {
	_, rootPath, err := buildVirtualRoot(sources)
	return rootPath, err
}

func (s *FSNodeStreamer) pruned(path string) bool {
	for _, ex := range s.excludes {
		if ex == path || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Next returns the next Item in pre-order, or io.EOF when exhausted.
func (s *FSNodeStreamer) Next() (Item, error) {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]

		if top.virtual != nil {
			if top.idx >= len(top.virtual) {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			v := top.virtual[top.idx]
			top.idx++
			if s.pruned(v.fullPath) {
				continue
			}
			if v.isSource {
				node, err := lstatNode(v.fullPath)
				if err != nil {
					return Item{}, err
				}
				item, numChildren, pushErr := s.descend(v.fullPath, node)
				if pushErr != nil {
					return Item{}, pushErr
				}
				item.NumChildren = numChildren
				return item, nil
			}
			// Synthetic intermediate directory: descend into its
			// own children without touching the real filesystem.
			s.stack = append(s.stack, &frame{path: v.fullPath, virtual: v.children})
			node := syntheticDirNode(v.name)
			return Item{Path: v.fullPath, Node: node, NumChildren: len(v.children)}, nil
		}

		// Real directory frame.
		if top.idx >= len(top.entries) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		entry := top.entries[top.idx]
		top.idx++
		childPath := filepath.Join(top.path, entry.Name())
		if s.pruned(childPath) {
			continue
		}
		node, err := lstatNode(childPath)
		if err != nil {
			return Item{}, err
		}
		if node.Type == treemodel.NodeDirectory {
			entries, err := os.ReadDir(childPath)
			if err != nil {
				return Item{}, err
			}
			s.stack = append(s.stack, &frame{path: childPath, entries: entries})
			return Item{Path: childPath, Node: node, NumChildren: len(entries)}, nil
		}
		return Item{Path: childPath, Node: node}, nil
	}
	return Item{}, io.EOF
}

// descend pushes a real-directory frame for path (already known to be
// a directory node) and returns the pre-order Item for path itself.
func (s *FSNodeStreamer) descend(path string, node treemodel.Node) (Item, int, error) {
	if node.Type != treemodel.NodeDirectory {
		return Item{Path: path, Node: node}, 0, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return Item{}, 0, err
	}
	s.stack = append(s.stack, &frame{path: path, entries: entries})
	return Item{Path: path, Node: node}, len(entries), nil
}

func syntheticDirNode(name string) treemodel.Node {
	return treemodel.Node{Name: name, Type: treemodel.NodeDirectory}
}
