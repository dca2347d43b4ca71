package pack

import (
	"encoding/binary"
	"encoding/json"

	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
)

// Descriptor describes one encoded blob's position within a pack body.
type Descriptor struct {
	ID           blob.ID   `json:"id"`
	Type         blob.Type `json:"type"`
	Offset       int64     `json:"offset"`
	EncodedLen   int64     `json:"encoded_length"`
	RawLen       int64     `json:"raw_length"`
}

// descriptorWire is the canonical JSON shape of a Descriptor: a fixed
// field order so the same trailer contents always serialize
// byte-identically, which matters because the trailer is itself
// encrypted and hashed.
type descriptorWire struct {
	ID         string `json:"id"`
	Type       uint8  `json:"type"`
	Offset     int64  `json:"offset"`
	EncodedLen int64  `json:"encoded_length"`
	RawLen     int64  `json:"raw_length"`
}

func (d Descriptor) wire() descriptorWire {
	return descriptorWire{
		ID:         d.ID.String(),
		Type:       uint8(d.Type),
		Offset:     d.Offset,
		EncodedLen: d.EncodedLen,
		RawLen:     d.RawLen,
	}
}

// MarshalDescriptors produces the canonical plaintext of a pack
// trailer's descriptor list, ready to be passed through the secure
// envelope.
func MarshalDescriptors(descs []Descriptor) ([]byte, error) {
	wire := make([]descriptorWire, len(descs))
	for i, d := range descs {
		wire[i] = d.wire()
	}
	return json.Marshal(wire)
}

// UnmarshalDescriptors parses a decoded trailer plaintext back into
// Descriptors.
func UnmarshalDescriptors(data []byte) ([]Descriptor, error) {
	var wire []descriptorWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, backuperrors.Corruptionf("pack: trailer decode: %w", err)
	}
	descs := make([]Descriptor, len(wire))
	for i, w := range wire {
		id, err := blob.ParseID(w.ID)
		if err != nil {
			return nil, backuperrors.Corruptionf("pack: trailer blob id: %w", err)
		}
		descs[i] = Descriptor{
			ID:         id,
			Type:       blob.Type(w.Type),
			Offset:     w.Offset,
			EncodedLen: w.EncodedLen,
			RawLen:     w.RawLen,
		}
	}
	return descs, nil
}

// TrailerLenSize is the width, in bytes, of the fixed trailing
// length field that closes every pack.
const TrailerLenSize = 4

// MaxTrailerLen bounds a sane encoded trailer length so a corrupted
// or truncated pack is rejected instead of causing a huge allocation.
const MaxTrailerLen = 64 << 20 // 64 MiB

// AppendTrailerLen appends the 4-byte big-endian length of the
// encoded trailer to body.
func AppendTrailerLen(body []byte, trailerLen int) []byte {
	var lenBuf [TrailerLenSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(trailerLen))
	return append(body, lenBuf[:]...)
}

// SplitTrailer locates the trailer within a full pack body: it reads
// the fixed-size length field off the tail, validates it against the
// body size, and returns the encoded trailer bytes plus the length of
// the blob-payload section that precedes it.
func SplitTrailer(packBytes []byte) (encodedTrailer []byte, bodyLen int, err error) {
	if len(packBytes) < TrailerLenSize {
		return nil, 0, backuperrors.Corruptionf("pack: too short to contain a trailer length")
	}
	lenOff := len(packBytes) - TrailerLenSize
	trailerLen := int(binary.BigEndian.Uint32(packBytes[lenOff:]))
	if trailerLen < 0 || trailerLen > MaxTrailerLen || trailerLen > lenOff {
		return nil, 0, backuperrors.Corruptionf("pack: trailer length %d out of range", trailerLen)
	}
	bodyLen = lenOff - trailerLen
	encodedTrailer = packBytes[bodyLen:lenOff]
	return encodedTrailer, bodyLen, nil
}

// ValidatePartition checks that descriptor offsets exactly partition
// the body section [0, bodyLen) with no gaps or overlaps.
func ValidatePartition(descs []Descriptor, bodyLen int64) error {
	cursor := int64(0)
	for _, d := range descs {
		if d.Offset != cursor {
			return backuperrors.Corruptionf("pack: descriptor offset %d != expected %d", d.Offset, cursor)
		}
		cursor += d.EncodedLen
	}
	if cursor != bodyLen {
		return backuperrors.Corruptionf("pack: descriptors cover %d bytes, body is %d", cursor, bodyLen)
	}
	return nil
}
