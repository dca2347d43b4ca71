// Package repository implements the Repository facade: the central
// object tying together Backend, the secure envelope, the Packers,
// the PackSaver, and the MasterIndex.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/cache"
	"github.com/jLantxa/backup/pkg/envelope"
	"github.com/jLantxa/backup/pkg/index"
	"github.com/jLantxa/backup/pkg/pack"
	"github.com/jLantxa/backup/pkg/packsaver"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Repository layout paths, relative to the backend root.
const (
	manifestPath  = "manifest"
	keysDir       = "keys"
	objectsDir    = "objects"
	snapshotsDir  = "snapshots"
	indexDir      = "index"
)

// FileKind selects which persisted-file directory save_file/list_files/find operate on.
type FileKind int

const (
	FileSnapshot FileKind = iota
	FileIndex
)

func (k FileKind) dir() string {
	if k == FileIndex {
		return indexDir
	}
	return snapshotsDir
}

// Repository ties together a Backend, the secure envelope, the Data
// and Tree Packers, the PackSaver, and the MasterIndex. It is shared
// across worker goroutines; every exported method is safe for
// concurrent use.
type Repository struct {
	b    backend.Backend
	cfg  Config
	env  *envelope.Envelope

	idx       *index.MasterIndex
	saver     *packsaver.Saver
	treeCache *cache.Cache[[]byte]

	packMu     sync.Mutex
	dataPacker *pack.Packer
	treePacker *pack.Packer

	manifest treemodel.Manifest
}

func newRepository(ctx context.Context, b backend.Backend, cfg Config, masterKey [envelope.KeySize]byte, manifest treemodel.Manifest) *Repository {
	cfg = cfg.withDefaults()
	env := envelope.New(masterKey, cfg.CompressionLevel)
	r := &Repository{
		b:          b,
		cfg:        cfg,
		env:        env,
		idx:        index.New(),
		dataPacker: pack.New(blob.TypeData),
		treePacker: pack.New(blob.TypeTree),
		treeCache:  cache.New[[]byte](treeCacheCapacity),
		manifest:   manifest,
	}
	r.saver = packsaver.New(ctx, b, objectsDir, cfg.WriteConcurrency)
	return r
}

// Manifest returns the repository's manifest.
func (r *Repository) Manifest() treemodel.Manifest { return r.manifest }

// fanoutDirs are the 256 two-hex-char subdirectories eagerly created
// under objects/ at Init.
func fanoutDirs() []string {
	dirs := make([]string, 0, 256)
	const hex = "0123456789abcdef"
	for _, a := range hex {
		for _, b := range hex {
			dirs = append(dirs, fmt.Sprintf("%s/%c%c", objectsDir, a, b))
		}
	}
	return dirs
}
