//go:build linux || darwin || freebsd || netbsd || openbsd

package streamers

import (
	"os"
	"syscall"
	"time"

	"github.com/jLantxa/backup/pkg/treemodel"
)

// lstatNode converts path's lstat(2) result into a Node, populating
// uid/gid/mode/atime from the raw syscall.Stat_t.
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
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		meta.UID = st.Uid
		meta.GID = st.Gid
		meta.Atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
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
	case fi.Mode()&os.ModeDir != 0:
		node.Type = treemodel.NodeDirectory
	case fi.Mode()&os.ModeDevice != 0 && fi.Mode()&os.ModeCharDevice != 0:
		node.Type = treemodel.NodeCharDevice
	case fi.Mode()&os.ModeDevice != 0:
		node.Type = treemodel.NodeBlockDevice
	case fi.Mode()&os.ModeNamedPipe != 0:
		node.Type = treemodel.NodeFifo
	case fi.Mode()&os.ModeSocket != 0:
		node.Type = treemodel.NodeSocket
	default:
		node.Type = treemodel.NodeFile
	}
	return node, nil
}
