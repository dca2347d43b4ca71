package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/pack"
)

// fakePersister is an in-memory Persister double.
type fakePersister struct {
	mu    sync.Mutex
	files map[blob.ID][]byte
}

func newFakePersister() *fakePersister {
	return &fakePersister{files: make(map[blob.ID][]byte)}
}

func (f *fakePersister) SaveIndex(id blob.ID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = data
	return nil
}

func (f *fakePersister) RemoveIndex(id blob.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	return nil
}

func descFor(raw string, typ blob.Type, offset int64) pack.Descriptor {
	id := blob.Compute([]byte(raw))
	return pack.Descriptor{ID: id, Type: typ, Offset: offset, EncodedLen: int64(len(raw)), RawLen: int64(len(raw))}
}

func TestAddPendingBlobRejectsDuplicates(t *testing.T) {
	mi := New()
	id := blob.Compute([]byte("x"))
	assert.True(t, mi.AddPendingBlob(id))
	assert.False(t, mi.AddPendingBlob(id))
}

func TestContainsSeesPendingReservation(t *testing.T) {
	mi := New()
	id := blob.Compute([]byte("reserved"))
	assert.False(t, mi.Contains(id))
	mi.AddPendingBlob(id)
	assert.True(t, mi.Contains(id))
}

func TestAddPackClearsPendingReservationAndIsGettable(t *testing.T) {
	mi := New()
	p := newFakePersister()
	packID := blob.Compute([]byte("pack-1"))
	d := descFor("payload", blob.TypeData, 0)

	mi.AddPendingBlob(d.ID)
	require.NoError(t, mi.AddPack(p, packID, []pack.Descriptor{d}))

	loc, ok := mi.Get(d.ID)
	require.True(t, ok)
	assert.Equal(t, packID, loc.PackID)
	assert.Equal(t, d.Offset, loc.Offset)

	assert.True(t, mi.Contains(d.ID), "committed entries remain visible via Contains")
}

func TestSaveFinalizesPendingIndex(t *testing.T) {
	mi := New()
	p := newFakePersister()
	packID := blob.Compute([]byte("pack-2"))
	d := descFor("finalize-me", blob.TypeData, 0)

	require.NoError(t, mi.AddPack(p, packID, []pack.Descriptor{d}))
	assert.Empty(t, p.files, "small packs stay pending until Save")

	require.NoError(t, mi.Save(p))
	assert.Len(t, p.files, 1)
	assert.Len(t, mi.AllIndexIDs(), 1)
}

func TestAllEntriesIncludesPendingAndFinalized(t *testing.T) {
	mi := New()
	p := newFakePersister()

	finalizedDesc := descFor("already-final", blob.TypeTree, 0)
	require.NoError(t, mi.AddPack(p, blob.Compute([]byte("pack-b")), []pack.Descriptor{finalizedDesc}))
	require.NoError(t, mi.Save(p))

	pendingDesc := descFor("still-pending", blob.TypeData, 0)
	require.NoError(t, mi.AddPack(p, blob.Compute([]byte("pack-a")), []pack.Descriptor{pendingDesc}))

	entries := mi.AllEntries()
	ids := make(map[blob.ID]bool)
	for _, e := range entries {
		ids[e.ID] = true
	}
	assert.True(t, ids[pendingDesc.ID])
	assert.True(t, ids[finalizedDesc.ID])
}

func TestLoadIndexFileMakesEntriesVisible(t *testing.T) {
	mi := New()
	p := newFakePersister()
	packID := blob.Compute([]byte("pack-c"))
	d := descFor("loaded-entry", blob.TypeData, 0)
	require.NoError(t, mi.AddPack(p, packID, []pack.Descriptor{d}))
	require.NoError(t, mi.Save(p))

	var savedID blob.ID
	var savedData []byte
	for id, data := range p.files {
		savedID, savedData = id, data
	}

	fresh := New()
	require.NoError(t, fresh.LoadIndexFile(savedID, savedData))
	loc, ok := fresh.Get(d.ID)
	require.True(t, ok)
	assert.Equal(t, packID, loc.PackID)
}

func TestCleanupRemovesPackEntriesAndMergesSurvivors(t *testing.T) {
	mi := New()
	p := newFakePersister()

	packA := blob.Compute([]byte("pack-remove"))
	packB := blob.Compute([]byte("pack-keep"))
	dA := descFor("removed-blob", blob.TypeData, 0)
	dB := descFor("kept-blob", blob.TypeData, 0)

	require.NoError(t, mi.AddPack(p, packA, []pack.Descriptor{dA}))
	require.NoError(t, mi.Save(p))
	require.NoError(t, mi.AddPack(p, packB, []pack.Descriptor{dB}))
	require.NoError(t, mi.Save(p))
	require.Len(t, mi.AllIndexIDs(), 2)

	_, err := mi.Cleanup(p, []blob.ID{packA})
	require.NoError(t, err)

	_, ok := mi.Get(dA.ID)
	assert.False(t, ok, "removed pack's blob must no longer resolve")

	loc, ok := mi.Get(dB.ID)
	require.True(t, ok)
	assert.Equal(t, packB, loc.PackID)
}
