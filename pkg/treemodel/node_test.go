package treemodel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/blob"
)

func sampleNode() Node {
	treeID := blob.Compute([]byte("a tree"))
	return Node{
		Name: "report.txt",
		Type: NodeFile,
		Meta: Meta{
			Size:  1234,
			Mtime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Atime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Mode:  0o644,
			UID:   1000,
			GID:   1000,
		},
		Blobs: []blob.ID{blob.Compute([]byte("chunk-1")), blob.Compute([]byte("chunk-2"))},
		Tree:  &treeID,
	}
}

func TestNodeJSONRoundTrip(t *testing.T) {
	n := sampleNode()
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var got Node
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, n.Name, got.Name)
	assert.Equal(t, n.Type, got.Type)
	assert.True(t, n.Meta.Equal(got.Meta))
	assert.Equal(t, n.Blobs, got.Blobs)
	require.NotNil(t, got.Tree)
	assert.Equal(t, *n.Tree, *got.Tree)
}

func TestMetaEqualIgnoresAtime(t *testing.T) {
	a := Meta{Size: 10, Mtime: time.Unix(100, 0), Atime: time.Unix(1, 0), Mode: 0o644, UID: 1, GID: 1}
	b := a
	b.Atime = time.Unix(999, 0)
	assert.True(t, a.Equal(b), "differing atime alone must not make Meta unequal")
}

func TestMetaEqualDetectsSizeChange(t *testing.T) {
	a := Meta{Size: 10, Mtime: time.Unix(100, 0), Mode: 0o644}
	b := a
	b.Size = 11
	assert.False(t, a.Equal(b))
}

func TestMetaEqualDetectsModeChange(t *testing.T) {
	a := Meta{Size: 10, Mtime: time.Unix(100, 0), Mode: 0o644}
	b := a
	b.Mode = 0o600
	assert.False(t, a.Equal(b))
}

func TestNodeWithoutOptionalFieldsOmitsThem(t *testing.T) {
	n := Node{Name: "empty-dir", Type: NodeDirectory}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	_, hasBlobs := raw["blobs"]
	_, hasTree := raw["tree"]
	_, hasLinkTarget := raw["link_target"]
	assert.False(t, hasBlobs)
	assert.False(t, hasTree)
	assert.False(t, hasLinkTarget)
}

func TestSymlinkTargetIsDirRoundTrips(t *testing.T) {
	isDir := true
	n := Node{Name: "link", Type: NodeSymlink, LinkTarget: "../other", TargetIsDir: &isDir}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var got Node
	require.NoError(t, json.Unmarshal(data, &got))
	require.NotNil(t, got.TargetIsDir)
	assert.True(t, *got.TargetIsDir)
}
