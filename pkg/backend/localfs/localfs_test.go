package localfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	return New(t.TempDir())
}

func TestCreateRootFailsIfAlreadyExists(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.CreateRoot("repo"))
	assert.Error(t, s.CreateRoot("repo"))
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newStorage(t)
	data := []byte("hello backend")
	require.NoError(t, s.Write("objects/ab/abcd", data))

	got, err := s.Read("objects/ab/abcd")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteCreatesParentDirs(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("a/b/c/file", []byte("x")))
	exists, err := s.Exists("a/b/c/file")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSeekReadReturnsSlice(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("blob", []byte("0123456789")))

	got, err := s.SeekRead("blob", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("3456"), got)
}

func TestRenameMovesFile(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("tmp/file", []byte("data")))
	require.NoError(t, s.Rename("tmp/file", "final/file"))

	exists, err := s.Exists("tmp/file")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.Read("final/file")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("file", []byte("x")))
	require.NoError(t, s.Remove("file"))
	assert.NoError(t, s.Remove("file"), "removing a nonexistent path must not error")
}

func TestRemoveAllDeletesDirectory(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("dir/a", []byte("1")))
	require.NoError(t, s.Write("dir/b", []byte("2")))
	require.NoError(t, s.RemoveAll("dir"))

	exists, err := s.Exists("dir")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExistsDistinguishesPresence(t *testing.T) {
	s := newStorage(t)
	exists, err := s.Exists("nope")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Write("here", []byte("y")))
	exists, err = s.Exists("here")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReadDirListsSortedEntries(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("packs/b", []byte("1")))
	require.NoError(t, s.Write("packs/a", []byte("2")))
	require.NoError(t, s.Write("packs/c", []byte("3")))

	entries, err := s.ReadDir("packs")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestLstatReportsSize(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Write("sized", []byte("12345")))

	info, err := s.Lstat("sized")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.IsDir)
}

func TestMkdirAllCreatesNestedDirs(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.MkdirAll(filepath.Join("deep", "nested", "dir")))
	info, err := s.Lstat(filepath.Join("deep", "nested", "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir)
}
