package treemodel

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// CurrentVersion is the only repository format version this core
// understands.
const CurrentVersion = 1

// Manifest identifies a repository: one per repository root.
type Manifest struct {
	Version      uint32    `json:"version"`
	ID           string    `json:"id"`
	CreatedTime  time.Time `json:"created_time"`
}

type wireManifest struct {
	Version     uint32 `json:"version"`
	ID          string `json:"id"`
	CreatedTime string `json:"created_time"`
}

// Marshal serializes the manifest for storage (it is itself passed
// through the secure envelope by the caller, like every other
// persisted JSON file except KeyFiles).
func (m Manifest) Marshal() ([]byte, error) {
	return json.Marshal(wireManifest{
		Version:     m.Version,
		ID:          m.ID,
		CreatedTime: m.CreatedTime.UTC().Format(time.RFC3339),
	})
}

// UnmarshalManifest parses a decoded manifest's plaintext.
func UnmarshalManifest(data []byte) (Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return Manifest{}, err
	}
	t, err := time.Parse(time.RFC3339, w.CreatedTime)
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{Version: w.Version, ID: w.ID, CreatedTime: t}, nil
}

// KeyFile holds a salt and the master key, encrypted under the
// Argon2id-derived KEK for one password holder. Multiple KeyFiles
// permit multiple password holders over the same master key.
type KeyFile struct {
	Salt         []byte `json:"-"`
	EncryptedKey []byte `json:"-"`
}

type wireKeyFile struct {
	Salt         string `json:"salt"`
	EncryptedKey string `json:"encrypted_key"`
}

// Marshal serializes the KeyFile as base64-encoded fields. Unlike
// every other persisted JSON file, a KeyFile is never passed through
// the master-keyed envelope (it IS the thing that unwraps the master
// key) — callers may still zstd-compress it, but it is never
// AES-GCM-encrypted under the repository's own key.
func (k KeyFile) Marshal() ([]byte, error) {
	return json.Marshal(wireKeyFile{
		Salt:         base64.StdEncoding.EncodeToString(k.Salt),
		EncryptedKey: base64.StdEncoding.EncodeToString(k.EncryptedKey),
	})
}

// UnmarshalKeyFile parses a KeyFile's plaintext JSON.
func UnmarshalKeyFile(data []byte) (KeyFile, error) {
	var w wireKeyFile
	if err := json.Unmarshal(data, &w); err != nil {
		return KeyFile{}, err
	}
	salt, err := base64.StdEncoding.DecodeString(w.Salt)
	if err != nil {
		return KeyFile{}, err
	}
	key, err := base64.StdEncoding.DecodeString(w.EncryptedKey)
	if err != nil {
		return KeyFile{}, err
	}
	return KeyFile{Salt: salt, EncryptedKey: key}, nil
}
