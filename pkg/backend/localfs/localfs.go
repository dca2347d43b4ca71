// Package localfs implements backend.Backend on the local filesystem:
// a plain-file, path-addressed store with eager directory creation,
// covering every file kind this format persists (manifest, keys,
// objects, index, snapshots).
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/jLantxa/backup/pkg/backend"
)

// Storage implements backend.Backend rooted at a local directory.
type Storage struct {
	root string
}

var _ backend.Backend = (*Storage)(nil)

// New returns a Storage rooted at root. root need not exist yet;
// CreateRoot creates it.
func New(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *Storage) CreateRoot(path string) error {
	full := s.abs(path)
	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("localfs: root %q already exists", full)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(full, 0o700)
}

func (s *Storage) Write(path string, data []byte) error {
	full := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

func (s *Storage) Read(path string) ([]byte, error) {
	return os.ReadFile(s.abs(path))
}

func (s *Storage) SeekRead(path string, offset, length int64) ([]byte, error) {
	f, err := os.Open(s.abs(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Storage) Rename(oldPath, newPath string) error {
	full := s.abs(newPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return err
	}
	return os.Rename(s.abs(oldPath), full)
}

func (s *Storage) Remove(path string) error {
	err := os.Remove(s.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Storage) RemoveAll(path string) error {
	return os.RemoveAll(s.abs(path))
}

func (s *Storage) Exists(path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *Storage) ReadDir(path string) ([]backend.FileInfo, error) {
	entries, err := os.ReadDir(s.abs(path))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make([]backend.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, toFileInfo(info))
	}
	return out, nil
}

func (s *Storage) Lstat(path string) (backend.FileInfo, error) {
	info, err := os.Lstat(s.abs(path))
	if err != nil {
		return backend.FileInfo{}, err
	}
	return toFileInfo(info), nil
}

func (s *Storage) MkdirAll(path string) error {
	return os.MkdirAll(s.abs(path), 0o700)
}

func toFileInfo(info fs.FileInfo) backend.FileInfo {
	return backend.FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}
