//go:build linux || darwin || freebsd || netbsd || openbsd

package restorer

import (
	"os"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// applyMeta restores mode, uid/gid, and mtime/atime on POSIX hosts.
func applyMeta(path string, node treemodel.Node) error {
	if node.Type != treemodel.NodeSymlink {
		if err := os.Chmod(path, os.FileMode(node.Meta.Mode)); err != nil {
			return err
		}
	}
	if err := os.Lchown(path, int(node.Meta.UID), int(node.Meta.GID)); err != nil {
		return err
	}
	if node.Type == treemodel.NodeSymlink {
		// Symlink timestamps are best-effort: not every platform
		// supports lutimes, and os offers no portable wrapper.
		return nil
	}
	return os.Chtimes(path, node.Meta.Atime, node.Meta.Mtime)
}
