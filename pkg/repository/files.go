package repository

import (
	"fmt"
	"strings"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
)

// SaveFile encodes data through the secure envelope, computes its
// content-addressed ID, and atomically writes it into the kind's
// directory (snapshots/ or index/). Unlike EncodeAndSaveBlob, these
// files are never grouped into a pack: each is its own small backend
// object.
func (r *Repository) SaveFile(kind FileKind, data []byte) (blob.ID, error) {
	id := blob.Compute(data)
	encoded, err := r.env.Encode(data)
	if err != nil {
		return id, err
	}
	dest := fmt.Sprintf("%s/%s", kind.dir(), id.String())
	if err := backend.WriteAtomic(r.b, kind.dir(), dest, encoded); err != nil {
		return id, backuperrors.Backendf(dest, err)
	}
	return id, nil
}

// ReadFile loads and decodes a file previously written with SaveFile.
func (r *Repository) ReadFile(kind FileKind, id blob.ID) ([]byte, error) {
	path := fmt.Sprintf("%s/%s", kind.dir(), id.String())
	encoded, err := r.b.Read(path)
	if err != nil {
		return nil, backuperrors.Backendf(path, err)
	}
	return r.env.Decode(encoded)
}

// ListFiles enumerates every ID present under the kind's directory.
func (r *Repository) ListFiles(kind FileKind) ([]blob.ID, error) {
	entries, err := r.b.ReadDir(kind.dir())
	if err != nil {
		return nil, backuperrors.Backendf(kind.dir(), err)
	}
	ids := make([]blob.ID, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := blob.ParseID(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Find resolves a short hex prefix against every ID of the given
// kind, returning the single matching full ID. It returns
// NotFoundError if nothing matches, and AmbiguousPrefixError if more
// than one ID shares the prefix.
func (r *Repository) Find(kind FileKind, prefix string) (blob.ID, error) {
	prefix = strings.ToLower(prefix)
	ids, err := r.ListFiles(kind)
	if err != nil {
		return blob.ID{}, err
	}
	var matches []blob.ID
	for _, id := range ids {
		if strings.HasPrefix(id.String(), prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return blob.ID{}, backuperrors.NotFoundf("repository: no %s file matches prefix %q", describeKind(kind), prefix)
	case 1:
		return matches[0], nil
	default:
		return blob.ID{}, backuperrors.AmbiguousPrefixf("repository: prefix %q matches %d %s files", prefix, len(matches), describeKind(kind))
	}
}

func describeKind(kind FileKind) string {
	if kind == FileIndex {
		return "index"
	}
	return "snapshot"
}
