package repository

import (
	"context"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/envelope"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// TryOpen opens an existing repository on b. If password is empty,
// prompt is invoked (up to maxOpenAttempts times) to retrieve one
// interactively. If keyFilePath is non-empty, only that external
// KeyFile is tried; otherwise every KeyFile under keys/ is tried in
// turn. The manifest is loaded and its version validated before the
// MasterIndex is populated from every index file.
func TryOpen(ctx context.Context, b backend.Backend, cfg Config, password string, keyFilePath string, prompt PasswordPrompter) (*Repository, error) {
	keyFiles, err := candidateKeyFiles(b, keyFilePath)
	if err != nil {
		return nil, err
	}
	if len(keyFiles) == 0 {
		return nil, backuperrors.NotFoundf("repository: no key files found")
	}

	masterKey, err := unlockAny(b, keyFiles, password, prompt)
	if err != nil {
		return nil, err
	}

	manifest, err := loadManifest(b, masterKey)
	if err != nil {
		return nil, err
	}
	if manifest.Version != treemodel.CurrentVersion {
		return nil, backuperrors.Configf("repository: unsupported manifest version %d", manifest.Version)
	}

	r := newRepository(ctx, b, cfg, masterKey, manifest)
	if err := r.loadIndices(); err != nil {
		return nil, err
	}
	return r, nil
}

// keyFileRef identifies one candidate KeyFile: either a path relative
// to the backend root, or an external path on local disk.
type keyFileRef struct {
	path     string
	external bool
}

func candidateKeyFiles(b backend.Backend, keyFilePath string) ([]keyFileRef, error) {
	if keyFilePath != "" {
		return []keyFileRef{{path: keyFilePath, external: true}}, nil
	}
	entries, err := b.ReadDir(keysDir)
	if err != nil {
		return nil, backuperrors.Backendf(keysDir, err)
	}
	refs := make([]keyFileRef, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			refs = append(refs, keyFileRef{path: keysDir + "/" + e.Name()})
		}
	}
	return refs, nil
}

// unlockAny tries every keyFilePath against password (or, if password
// is empty, up to maxOpenAttempts interactively-prompted passwords),
// returning the first master key any KeyFile unwraps.
func unlockAny(b backend.Backend, keyFilePaths []keyFileRef, password string, prompt PasswordPrompter) ([envelope.KeySize]byte, error) {
	var zero [envelope.KeySize]byte

	attempts := 1
	if password == "" {
		attempts = maxOpenAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		pw := password
		if pw == "" {
			var err error
			pw, err = prompt(attempt)
			if err != nil {
				return zero, err
			}
		}
		if key, ok, err := tryUnlockWithPassword(b, keyFilePaths, pw); err != nil {
			return zero, err
		} else if ok {
			return key, nil
		}
		if password != "" {
			break
		}
	}
	return zero, backuperrors.Decryptf("repository: no key file could be unlocked with the supplied password")
}

func tryUnlockWithPassword(b backend.Backend, keyFilePaths []keyFileRef, password string) ([envelope.KeySize]byte, bool, error) {
	var zero [envelope.KeySize]byte
	for _, ref := range keyFilePaths {
		var data []byte
		var err error
		if ref.external {
			data, err = readExternalFile(ref.path)
		} else {
			data, err = b.Read(ref.path)
		}
		if err != nil {
			continue
		}
		kf, err := treemodel.UnmarshalKeyFile(data)
		if err != nil {
			continue
		}
		key, err := unwrapMasterKey(kf, password)
		if err == nil {
			return key, true, nil
		}
	}
	return zero, false, nil
}

func loadManifest(b backend.Backend, masterKey [envelope.KeySize]byte) (treemodel.Manifest, error) {
	encoded, err := b.Read(manifestPath)
	if err != nil {
		return treemodel.Manifest{}, backuperrors.Backendf(manifestPath, err)
	}
	env := envelope.New(masterKey, envelope.LevelDefault)
	plain, err := env.Decode(encoded)
	if err != nil {
		return treemodel.Manifest{}, err
	}
	return treemodel.UnmarshalManifest(plain)
}

func (r *Repository) loadIndices() error {
	entries, err := r.b.ReadDir(indexDir)
	if err != nil {
		return backuperrors.Backendf(indexDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := blob.ParseID(e.Name())
		if err != nil {
			continue
		}
		encoded, err := r.b.Read(indexDir + "/" + e.Name())
		if err != nil {
			return backuperrors.Backendf(e.Name(), err)
		}
		plain, err := r.env.Decode(encoded)
		if err != nil {
			return err
		}
		if err := r.idx.LoadIndexFile(id, plain); err != nil {
			return err
		}
	}
	return nil
}
