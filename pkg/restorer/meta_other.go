//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package restorer

import (
	"os"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// applyMeta on non-POSIX hosts: uid/gid cannot be restored portably,
// so only mode and timestamps are applied.
func applyMeta(path string, node treemodel.Node) error {
	if node.Type == treemodel.NodeSymlink {
		return nil
	}
	if err := os.Chmod(path, os.FileMode(node.Meta.Mode)); err != nil {
		return err
	}
	return os.Chtimes(path, node.Meta.Atime, node.Meta.Mtime)
}
