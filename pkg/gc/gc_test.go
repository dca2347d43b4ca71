package gc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/backend/localfs"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/treemodel"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	b := localfs.New(filepath.Join(t.TempDir(), "repo"))
	repo, err := repository.Init(context.Background(), b, repository.Config{}, "password", "")
	require.NoError(t, err)
	return repo
}

func TestPlanClassifiesUnreferencedPackAsUnused(t *testing.T) {
	repo := newTestRepo(t)

	// Referenced: data blob wrapped in a tree, pointed to by a snapshot.
	referencedData := []byte("kept forever")
	dataID, err := repo.EncodeAndSaveBlob(blob.TypeData, referencedData, nil)
	require.NoError(t, err)
	tree := treemodel.Tree{Children: []treemodel.Node{{Name: "f.txt", Type: treemodel.NodeFile, Blobs: []blob.ID{dataID}}}}
	treeData, err := tree.Marshal()
	require.NoError(t, err)
	treeID, err := tree.ID()
	require.NoError(t, err)
	_, err = repo.EncodeAndSaveBlob(blob.TypeTree, treeData, &treeID)
	require.NoError(t, err)
	require.NoError(t, repo.Flush())

	// Unreferenced: a data blob nothing ever points to, flushed into
	// its own pack so it doesn't share a pack with the referenced blob.
	orphanData := []byte("nobody references this one")
	_, err = repo.EncodeAndSaveBlob(blob.TypeData, orphanData, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Flush())

	snap := treemodel.Snapshot{RootPath: "/data", RootTree: treeID}
	snapData, err := snap.Marshal()
	require.NoError(t, err)
	_, err = repo.SaveFile(repository.FileSnapshot, snapData)
	require.NoError(t, err)

	snaps, err := repo.AllSnapshots()
	require.NoError(t, err)

	g := New(repo)
	plan, err := g.Plan(snaps)
	require.NoError(t, err)

	var sawUnused, sawLive bool
	for _, pi := range plan.Packs {
		if pi.Class == ClassUnused {
			sawUnused = true
		} else {
			sawLive = true
		}
	}
	assert.True(t, sawUnused, "the orphan blob's pack must be classified unused")
	assert.True(t, sawLive, "the referenced blob's pack must not be classified unused")
}

func TestExecuteRemovesUnusedPacksAndKeepsReferencedBlobs(t *testing.T) {
	repo := newTestRepo(t)

	referencedData := []byte("survives gc")
	dataID, err := repo.EncodeAndSaveBlob(blob.TypeData, referencedData, nil)
	require.NoError(t, err)
	tree := treemodel.Tree{Children: []treemodel.Node{{Name: "f.txt", Type: treemodel.NodeFile, Blobs: []blob.ID{dataID}}}}
	treeData, err := tree.Marshal()
	require.NoError(t, err)
	treeID, err := tree.ID()
	require.NoError(t, err)
	_, err = repo.EncodeAndSaveBlob(blob.TypeTree, treeData, &treeID)
	require.NoError(t, err)
	require.NoError(t, repo.Flush())

	orphanData := []byte("does not survive gc")
	_, err = repo.EncodeAndSaveBlob(blob.TypeData, orphanData, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Flush())

	snap := treemodel.Snapshot{RootPath: "/data", RootTree: treeID}
	snapData, err := snap.Marshal()
	require.NoError(t, err)
	_, err = repo.SaveFile(repository.FileSnapshot, snapData)
	require.NoError(t, err)

	snaps, err := repo.AllSnapshots()
	require.NoError(t, err)

	g := New(repo)
	plan, err := g.Plan(snaps)
	require.NoError(t, err)
	require.NoError(t, g.Execute(plan))

	got, err := repo.LoadBlob(dataID)
	require.NoError(t, err)
	assert.Equal(t, referencedData, got)

	packsAfter, err := repo.ListPacks()
	require.NoError(t, err)
	for _, id := range packsAfter {
		refs, err := repo.PackLocations(id)
		require.NoError(t, err)
		for _, ref := range refs {
			assert.NotEqual(t, blob.Compute(orphanData), ref.ID, "orphan blob must not survive in any remaining pack")
		}
	}
}

func TestExecuteRepackDropsGarbageBlobsSharingAnObsoletePack(t *testing.T) {
	repo := newTestRepo(t)

	// Referenced and orphan blobs land in the *same* pack (no Flush
	// between them), so the pack mixes live and dead data and must go
	// through the repack path rather than being wholesale-removed.
	referencedData := []byte("survives repacking")
	dataID, err := repo.EncodeAndSaveBlob(blob.TypeData, referencedData, nil)
	require.NoError(t, err)
	orphanData := []byte("garbage dropped during repacking, not carried forward")
	orphanID, err := repo.EncodeAndSaveBlob(blob.TypeData, orphanData, nil)
	require.NoError(t, err)

	tree := treemodel.Tree{Children: []treemodel.Node{{Name: "f.txt", Type: treemodel.NodeFile, Blobs: []blob.ID{dataID}}}}
	treeData, err := tree.Marshal()
	require.NoError(t, err)
	treeID, err := tree.ID()
	require.NoError(t, err)
	_, err = repo.EncodeAndSaveBlob(blob.TypeTree, treeData, &treeID)
	require.NoError(t, err)
	require.NoError(t, repo.Flush())

	snap := treemodel.Snapshot{RootPath: "/data", RootTree: treeID}
	snapData, err := snap.Marshal()
	require.NoError(t, err)
	_, err = repo.SaveFile(repository.FileSnapshot, snapData)
	require.NoError(t, err)

	snaps, err := repo.AllSnapshots()
	require.NoError(t, err)

	g := New(repo)
	plan, err := g.Plan(snaps)
	require.NoError(t, err)

	var mixedPackID blob.ID
	var foundMixed bool
	for _, pi := range plan.Packs {
		if pi.KeptBytes > 0 && pi.GarbageBytes > 0 {
			mixedPackID = pi.ID
			foundMixed = true
		}
	}
	require.True(t, foundMixed, "one pack must hold both the referenced and the orphan data blob")
	require.Contains(t, plan.ToRepack(), mixedPackID, "the mixed pack must be classified for repacking, not left alone")

	require.NoError(t, g.Execute(plan))

	got, err := repo.LoadBlob(dataID)
	require.NoError(t, err)
	assert.Equal(t, referencedData, got)

	packsAfter, err := repo.ListPacks()
	require.NoError(t, err)
	for _, id := range packsAfter {
		refs, err := repo.PackLocations(id)
		require.NoError(t, err)
		for _, ref := range refs {
			assert.NotEqual(t, orphanID, ref.ID, "the orphan blob must be dropped, not copied forward into the new pack")
		}
	}
}

func TestToRepackMergesSmallPacksOnlyWhenAtLeastTwo(t *testing.T) {
	plan := Plan{Packs: []PackInfo{
		{ID: blob.Compute([]byte("p1")), Class: ClassSmall},
	}}
	assert.Empty(t, plan.ToRepack(), "a single small pack alone is not worth repacking")

	plan2 := Plan{Packs: []PackInfo{
		{ID: blob.Compute([]byte("p1")), Class: ClassSmall},
		{ID: blob.Compute([]byte("p2")), Class: ClassSmall},
	}}
	assert.Len(t, plan2.ToRepack(), 2)

	plan3 := Plan{Packs: []PackInfo{
		{ID: blob.Compute([]byte("p1")), Class: ClassObsolete},
	}}
	assert.Len(t, plan3.ToRepack(), 1)
}
