package streamers

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// mapBlobLoader resolves Tree blobs from an in-memory map, implementing
// BlobLoader without touching a real repository.
type mapBlobLoader struct {
	trees map[blob.ID][]byte
}

func (m *mapBlobLoader) LoadBlob(id blob.ID) ([]byte, error) {
	data, ok := m.trees[id]
	if !ok {
		return nil, assert.AnError
	}
	return data, nil
}

func storeTree(t *testing.T, loader *mapBlobLoader, tree treemodel.Tree) blob.ID {
	t.Helper()
	data, err := tree.Marshal()
	require.NoError(t, err)
	id, err := tree.ID()
	require.NoError(t, err)
	loader.trees[id] = data
	return id
}

func drainSerialized(t *testing.T, s *SerializedNodeStreamer) []Item {
	t.Helper()
	var out []Item
	for {
		item, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func TestSerializedNodeStreamerWalksNestedTrees(t *testing.T) {
	loader := &mapBlobLoader{trees: make(map[blob.ID][]byte)}

	subTree := treemodel.Tree{Children: []treemodel.Node{
		{Name: "inner.txt", Type: treemodel.NodeFile},
	}}
	subID := storeTree(t, loader, subTree)

	rootTree := treemodel.Tree{Children: []treemodel.Node{
		{Name: "a.txt", Type: treemodel.NodeFile},
		{Name: "sub", Type: treemodel.NodeDirectory, Tree: &subID},
	}}
	rootID := storeTree(t, loader, rootTree)

	s, err := NewSerializedNodeStreamer(loader, "/root", rootID, nil, nil)
	require.NoError(t, err)
	items := drainSerialized(t, s)

	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"/root/a.txt", "/root/sub", "/root/sub/inner.txt"}, paths)
}

func TestSerializedNodeStreamerExcludesPrefix(t *testing.T) {
	loader := &mapBlobLoader{trees: make(map[blob.ID][]byte)}
	subID := storeTree(t, loader, treemodel.Tree{Children: []treemodel.Node{{Name: "secret.txt", Type: treemodel.NodeFile}}})
	rootTree := treemodel.Tree{Children: []treemodel.Node{
		{Name: "keep.txt", Type: treemodel.NodeFile},
		{Name: "excluded", Type: treemodel.NodeDirectory, Tree: &subID},
	}}
	rootID := storeTree(t, loader, rootTree)

	s, err := NewSerializedNodeStreamer(loader, "/root", rootID, nil, []string{"/root/excluded"})
	require.NoError(t, err)
	items := drainSerialized(t, s)

	for _, it := range items {
		assert.NotContains(t, it.Path, "excluded")
	}
	require.Len(t, items, 1)
	assert.Equal(t, "/root/keep.txt", items[0].Path)
}

func TestSerializedNodeStreamerIncludesFilterRestrictsToMatchingSubtree(t *testing.T) {
	loader := &mapBlobLoader{trees: make(map[blob.ID][]byte)}
	subID := storeTree(t, loader, treemodel.Tree{Children: []treemodel.Node{{Name: "in.txt", Type: treemodel.NodeFile}}})
	rootTree := treemodel.Tree{Children: []treemodel.Node{
		{Name: "other.txt", Type: treemodel.NodeFile},
		{Name: "wanted", Type: treemodel.NodeDirectory, Tree: &subID},
	}}
	rootID := storeTree(t, loader, rootTree)

	s, err := NewSerializedNodeStreamer(loader, "/root", rootID, []string{"/root/wanted"}, nil)
	require.NoError(t, err)
	items := drainSerialized(t, s)

	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"/root/wanted", "/root/wanted/in.txt"}, paths)
}
