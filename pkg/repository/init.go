package repository

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/envelope"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// PasswordPrompter is called by TryOpen when no password was supplied
// by the caller, up to three times, to interactively retrieve one.
// The CLI supplies the concrete implementation (TTY prompting).
type PasswordPrompter func(attempt int) (string, error)

const maxOpenAttempts = 3

// Init creates a fresh repository skeleton on b: manifest, keys/,
// objects/<256 fanout>, snapshots/, index/. It generates a random
// 32-byte master key, wraps it under a password-derived KEK, and
// writes the KeyFile either at keyFilePath (if non-empty) or inside
// keys/ otherwise. Fails if the root already exists.
func Init(ctx context.Context, b backend.Backend, cfg Config, password string, keyFilePath string) (*Repository, error) {
	if err := b.CreateRoot(""); err != nil {
		return nil, backuperrors.Backendf("", err)
	}
	for _, d := range []string{keysDir, snapshotsDir, indexDir} {
		if err := b.MkdirAll(d); err != nil {
			return nil, backuperrors.Backendf(d, err)
		}
	}
	for _, d := range fanoutDirs() {
		if err := b.MkdirAll(d); err != nil {
			return nil, backuperrors.Backendf(d, err)
		}
	}

	var masterKey [envelope.KeySize]byte
	if _, err := io.ReadFull(rand.Reader, masterKey[:]); err != nil {
		return nil, fmt.Errorf("repository: generate master key: %w", err)
	}

	keyFile, err := wrapMasterKey(masterKey, password)
	if err != nil {
		return nil, err
	}
	keyFileBytes, err := keyFile.Marshal()
	if err != nil {
		return nil, err
	}
	keyID := blobIDOfKeyFile(keyFileBytes)
	if keyFilePath != "" {
		if err := writeExternalFile(keyFilePath, keyFileBytes); err != nil {
			return nil, backuperrors.Backendf(keyFilePath, err)
		}
	} else {
		dest := fmt.Sprintf("%s/%s", keysDir, keyID)
		if err := backend.WriteAtomic(b, parentDir(dest), dest, keyFileBytes); err != nil {
			return nil, backuperrors.Backendf(dest, err)
		}
	}

	manifest := treemodel.Manifest{
		Version:     treemodel.CurrentVersion,
		ID:          uuid.NewString(),
		CreatedTime: time.Now(),
	}
	r := newRepository(ctx, b, cfg, masterKey, manifest)
	manifestBytes, err := manifest.Marshal()
	if err != nil {
		return nil, err
	}
	encodedManifest, err := r.env.Encode(manifestBytes)
	if err != nil {
		return nil, err
	}
	if err := backend.WriteAtomic(b, "", manifestPath, encodedManifest); err != nil {
		return nil, backuperrors.Backendf(manifestPath, err)
	}

	return r, nil
}

func parentDir(path string) string {
	i := lastSlash(path)
	if i < 0 {
		return ""
	}
	return path[:i]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

func wrapMasterKey(masterKey [envelope.KeySize]byte, password string) (treemodel.KeyFile, error) {
	salt, err := envelope.NewSalt()
	if err != nil {
		return treemodel.KeyFile{}, err
	}
	kek := envelope.DeriveKEK([]byte(password), salt)
	kekEnvelope := envelope.New(kek, envelope.LevelDefault)
	encryptedKey, err := kekEnvelope.Encode(masterKey[:])
	if err != nil {
		return treemodel.KeyFile{}, err
	}
	return treemodel.KeyFile{Salt: salt, EncryptedKey: encryptedKey}, nil
}

func unwrapMasterKey(kf treemodel.KeyFile, password string) ([envelope.KeySize]byte, error) {
	var key [envelope.KeySize]byte
	kek := envelope.DeriveKEK([]byte(password), kf.Salt)
	kekEnvelope := envelope.New(kek, envelope.LevelDefault)
	plain, err := kekEnvelope.Decode(kf.EncryptedKey)
	if err != nil {
		return key, backuperrors.Decryptf("repository: unwrap master key: %w", err)
	}
	if len(plain) != envelope.KeySize {
		return key, backuperrors.Corruptionf("repository: unwrapped master key has wrong length %d", len(plain))
	}
	copy(key[:], plain)
	return key, nil
}

func blobIDOfKeyFile(data []byte) string {
	return blob.Compute(data).String()
}
