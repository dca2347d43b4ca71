package streamers

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// sliceStreamer replays a fixed slice of Items, implementing Streamer.
type sliceStreamer struct {
	items []Item
	idx   int
}

func (s *sliceStreamer) Next() (Item, error) {
	if s.idx >= len(s.items) {
		return Item{}, io.EOF
	}
	item := s.items[s.idx]
	s.idx++
	return item, nil
}

func fileItem(path string, size int64, mtime time.Time) Item {
	return Item{Path: path, Node: treemodel.Node{Name: path, Type: treemodel.NodeFile, Meta: treemodel.Meta{Size: size, Mtime: mtime}}}
}

func drainDiff(t *testing.T, d *NodeDiffStreamer) []DiffItem {
	t.Helper()
	var out []DiffItem
	for {
		item, err := d.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func TestDiffStreamerWithNilPrevMarksEverythingNew(t *testing.T) {
	next := &sliceStreamer{items: []Item{fileItem("a", 1, time.Unix(1, 0)), fileItem("b", 2, time.Unix(2, 0))}}
	d := NewNodeDiffStreamer(nil, next)
	items := drainDiff(t, d)

	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, New, it.Kind)
		assert.Nil(t, it.Prev)
		assert.NotNil(t, it.Next)
	}
}

func TestDiffStreamerDetectsUnchangedChangedNewDeleted(t *testing.T) {
	mtime := time.Unix(100, 0)
	prev := &sliceStreamer{items: []Item{
		fileItem("changed.txt", 10, mtime),
		fileItem("deleted.txt", 5, mtime),
		fileItem("same.txt", 7, mtime),
	}}
	next := &sliceStreamer{items: []Item{
		fileItem("changed.txt", 99, mtime),
		fileItem("new.txt", 1, mtime),
		fileItem("same.txt", 7, mtime),
	}}
	d := NewNodeDiffStreamer(prev, next)
	items := drainDiff(t, d)

	kinds := make(map[string]DiffKind)
	for _, it := range items {
		kinds[it.Path] = it.Kind
	}
	assert.Equal(t, Changed, kinds["changed.txt"])
	assert.Equal(t, Deleted, kinds["deleted.txt"])
	assert.Equal(t, Unchanged, kinds["same.txt"])
	assert.Equal(t, New, kinds["new.txt"])
}

func TestDiffKindStringValues(t *testing.T) {
	assert.Equal(t, "new", New.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "changed", Changed.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
