package treemodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/blob"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp:   time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC),
		RootPath:    "/home/user/docs",
		RootTree:    blob.Compute([]byte("root tree")),
		SourcePaths: []string{"/home/user/docs"},
		Tags:        []string{"weekly", "daily"},
		Description: "first backup",
		Summary:     Summary{FilesNew: 3, DataBlobs: 5},
	}
}

func TestSnapshotMarshalRoundTrip(t *testing.T) {
	s := sampleSnapshot()
	data, err := s.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.True(t, s.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, s.RootPath, got.RootPath)
	assert.Equal(t, s.RootTree, got.RootTree)
	assert.Equal(t, s.SourcePaths, got.SourcePaths)
	assert.Equal(t, []string{"daily", "weekly"}, got.Tags, "tags are canonicalized in sorted order")
	assert.Equal(t, s.Description, got.Description)
	assert.Equal(t, s.Summary, got.Summary)
}

func TestSnapshotIDIsDeterministic(t *testing.T) {
	s := sampleSnapshot()
	idA, err := s.ID()
	require.NoError(t, err)
	idB, err := s.ID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestSnapshotWithParentRoundTrips(t *testing.T) {
	parent := blob.Compute([]byte("parent snapshot"))
	s := sampleSnapshot()
	s.Parent = &parent

	data, err := s.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	require.NotNil(t, got.Parent)
	assert.Equal(t, parent, *got.Parent)
}

func TestSnapshotWithoutParentHasNilParent(t *testing.T) {
	s := sampleSnapshot()
	data, err := s.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Nil(t, got.Parent)
}
