// Package envelope implements the secure envelope: zstd compression
// followed by AES-256-GCM authenticated encryption, and the Argon2id
// key derivation used to wrap/unwrap the persisted master key.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/argon2"

	"github.com/jLantxa/backup/pkg/backuperrors"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	// SaltSize is the length of the Argon2id salt persisted in the KeyFile.
	SaltSize = 16
)

// Level is the zstd compression level.
type Level int

const (
	LevelDefault Level = Level(zstd.SpeedDefault)
	LevelFastest Level = Level(zstd.SpeedFastest)
	LevelBest    Level = Level(zstd.SpeedBestCompression)
)

// Envelope encodes and decodes opaque byte blocks under a single
// 32-byte key. A Repository holds one Envelope keyed by the
// persisted master key, and constructs a throwaway Envelope keyed by
// the Argon2id-derived KEK only to wrap/unwrap that master key.
type Envelope struct {
	key   [KeySize]byte
	level Level
}

// New returns an Envelope that encrypts with key and compresses at level.
func New(key [KeySize]byte, level Level) *Envelope {
	return &Envelope{key: key, level: level}
}

// DeriveKEK derives a 32-byte key-encryption-key from password and
// salt via Argon2id, using the library's recommended defaults
// (time=3, memory=64MiB, threads=4, per the OWASP/Argon2 RFC
// guidance baked into golang.org/x/crypto/argon2's IDKey helper).
func DeriveKEK(password, salt []byte) [KeySize]byte {
	var kek [KeySize]byte
	copy(kek[:], argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, KeySize))
	return kek
}

// NewSalt returns a fresh random Argon2id salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("envelope: generate salt: %w", err)
	}
	return salt, nil
}

// Encode compresses then encrypts plaintext, producing
// nonce ‖ ciphertext ‖ tag.
func (e *Envelope) Encode(plaintext []byte) ([]byte, error) {
	compressed, err := e.compress(plaintext)
	if err != nil {
		return nil, backuperrors.Corruptionf("envelope: compress: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("envelope: nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(compressed)+gcm.Overhead())
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, compressed, nil)
	return out, nil
}

// Decode reverses Encode: AES-GCM open then zstd decompress.
func (e *Envelope) Decode(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, backuperrors.Decryptf("envelope: ciphertext shorter than nonce")
	}
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonce, sealed := ciphertext[:NonceSize], ciphertext[NonceSize:]
	compressed, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, backuperrors.Decryptf("envelope: gcm open: %w", err)
	}
	plaintext, err := e.decompress(compressed)
	if err != nil {
		return nil, backuperrors.Corruptionf("envelope: decompress: %w", err)
	}
	return plaintext, nil
}

func (e *Envelope) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: gcm: %w", err)
	}
	return gcm, nil
}

func (e *Envelope) compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(e.level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (e *Envelope) decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
