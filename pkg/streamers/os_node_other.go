//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package streamers

import (
	"os"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// lstatNode on non-POSIX hosts: uid/gid are left at the zero value and
// atime is recorded as the modification time, since there is no
// portable equivalent. Symlink target type
// is still recorded when the OS can resolve it.
func lstatNode(path string) (treemodel.Node, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return treemodel.Node{}, err
	}
	meta := treemodel.Meta{
		Size:  fi.Size(),
		Mtime: fi.ModTime(),
		Atime: fi.ModTime(),
		Mode:  uint32(fi.Mode().Perm()),
	}
	node := treemodel.Node{Name: fi.Name(), Meta: meta}
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		node.Type = treemodel.NodeSymlink
		target, err := os.Readlink(path)
		if err != nil {
			return treemodel.Node{}, err
		}
		node.LinkTarget = target
		if targetInfo, err := os.Stat(path); err == nil {
			isDir := targetInfo.IsDir()
			node.TargetIsDir = &isDir
		}
	case fi.IsDir():
		node.Type = treemodel.NodeDirectory
	default:
		node.Type = treemodel.NodeFile
	}
	return node, nil
}
