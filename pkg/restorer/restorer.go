// Package restorer implements the Restorer: the inverse of the
// archiver, walking a stored snapshot's tree via a
// SerializedNodeStreamer and writing decrypted blobs back to the
// filesystem.
package restorer

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/streamers"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Policy selects how the Restorer handles a destination path that
// already exists.
type Policy int

const (
	// Skip leaves the existing path untouched.
	Skip Policy = iota
	// Overwrite replaces the existing path's contents.
	Overwrite
	// FailFast aborts the whole restore on the first collision.
	FailFast
)

// Repo is the narrow Repository capability the Restorer needs.
type Repo interface {
	streamers.BlobLoader
}

// pendingDir is a created directory whose mtime/atime restoration is
// deferred until every descendant has been written, so writing
// children doesn't bump the directory's own mtime back to "now".
type pendingDir struct {
	path string
	meta treemodel.Node
}

// Restorer restores a stored snapshot tree onto the local filesystem.
type Restorer struct {
	repo   Repo
	policy Policy

	dirs []pendingDir

	FilesWritten int
	DirsCreated  int
	Skipped      int
}

// New returns a Restorer reading blobs via repo, applying policy to
// any destination path that already exists.
func New(repo Repo, policy Policy) *Restorer {
	return &Restorer{repo: repo, policy: policy}
}

// Restore walks snap's tree (optionally filtered by includes/excludes,
// matching NewSerializedNodeStreamer's contract) and recreates it
// under destRoot, replacing snap.RootPath with destRoot as the prefix
// of every restored path.
func (r *Restorer) Restore(snap treemodel.Snapshot, destRoot string, includes, excludes []string) error {
	stream, err := streamers.NewSerializedNodeStreamer(r.repo, snap.RootPath, snap.RootTree, includes, excludes)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return err
	}

	for {
		item, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		dest := r.destPath(destRoot, snap.RootPath, item.Path)
		if err := r.restoreNode(dest, item.Node); err != nil {
			return err
		}
	}

	return r.finishDirs()
}

// destPath rewrites an item's logical path (rooted at rootPath) to
// live under destRoot instead.
func (r *Restorer) destPath(destRoot, rootPath, itemPath string) string {
	rel := strings.TrimPrefix(itemPath, rootPath)
	rel = strings.TrimPrefix(rel, "/")
	return filepath.Join(destRoot, rel)
}

func (r *Restorer) restoreNode(dest string, node treemodel.Node) error {
	exists, err := pathExists(dest)
	if err != nil {
		return err
	}
	if exists {
		switch r.policy {
		case Skip:
			r.Skipped++
			return nil
		case FailFast:
			return backuperrors.Corruptionf("restorer: destination %q already exists", dest)
		case Overwrite:
			// fall through to the type-specific handler below.
		}
	}

	switch node.Type {
	case treemodel.NodeDirectory:
		return r.restoreDir(dest, node)
	case treemodel.NodeFile:
		return r.restoreFile(dest, node)
	case treemodel.NodeSymlink:
		return r.restoreSymlink(dest, node)
	default:
		// Device/FIFO/Socket nodes are not restored.
		return nil
	}
}

func (r *Restorer) restoreDir(dest string, node treemodel.Node) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	r.DirsCreated++
	r.dirs = append(r.dirs, pendingDir{path: dest, meta: node})
	return nil
}

func (r *Restorer) restoreFile(dest string, node treemodel.Node) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(node.Meta.Mode))
	if err != nil {
		return err
	}
	for _, id := range node.Blobs {
		data, err := r.repo.LoadBlob(id)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.FilesWritten++
	return applyMeta(dest, node)
}

func (r *Restorer) restoreSymlink(dest string, node treemodel.Node) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	_ = os.Remove(dest)
	if err := os.Symlink(node.LinkTarget, dest); err != nil {
		return err
	}
	return nil
}

// finishDirs restores every deferred directory's mtime/atime in
// reverse (deepest-first) creation order, so a deeper directory's
// touch doesn't reset its parent's timestamp again.
func (r *Restorer) finishDirs() error {
	for i := len(r.dirs) - 1; i >= 0; i-- {
		d := r.dirs[i]
		if err := applyMeta(d.path, d.meta); err != nil {
			return err
		}
	}
	return nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
