// Package blob defines the content-addressed identifiers and blob
// type tags shared by the pack, index, and tree packages.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Size is the length in bytes of an ID.
const Size = sha256.Size // 32

// ID is a 32-byte content hash. It is used as a value type: it
// supports == and can be used as a map key directly.
type ID [Size]byte

// Zero is the zero-value ID, never a valid blob identifier.
var Zero ID

// Compute returns the ID of plaintext: the SHA-256 hash of its bytes.
func Compute(plaintext []byte) ID {
	return ID(sha256.Sum256(plaintext))
}

// String renders the ID as lowercase hex, its display and file-name form.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// ParseID parses a 64-char lowercase hex string into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != Size*2 {
		return id, errors.New("blob: invalid id length")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// Type is the tag carried by every blob.
type Type uint8

const (
	// TypeData holds file content chunks.
	TypeData Type = iota
	// TypeTree holds a serialized directory tree.
	TypeTree
	// TypePadding is never indexed; it exists only to pad pack
	// bodies and is skipped by every reader.
	TypePadding
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeTree:
		return "tree"
	case TypePadding:
		return "padding"
	default:
		return "unknown"
	}
}

// FanoutDir returns the first two hex characters of id, used as the
// fanout subdirectory name under objects/.
func (id ID) FanoutDir() string {
	return id.String()[:2]
}
