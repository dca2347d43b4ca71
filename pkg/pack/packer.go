// Package pack implements the Packer: the in-memory accumulator that
// groups encoded blob payloads into a self-describing container file,
// and the trailer format that makes that container's blob boundaries
// discoverable without a side index.
//
// Packs accumulate in memory (one pack per flush, rather than one
// ever-growing file) with an encrypted trailer carrying the blob
// boundaries instead of a side index file.
package pack

import (
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/envelope"
)

// Packer accumulates encoded blob payloads of a single blob.Type
// (Data or Tree packs are never mixed, per the one-type-per-pack
// invariant) until flushed into a FlushedPack.
type Packer struct {
	typ   blob.Type
	body  []byte
	descs []Descriptor
}

// New returns an empty Packer for the given blob type.
func New(typ blob.Type) *Packer {
	return &Packer{typ: typ}
}

// AddBlob appends an already-encoded payload, recording a descriptor
// at the current tail offset.
func (p *Packer) AddBlob(id blob.ID, encodedPayload []byte, rawLen int64) {
	offset := int64(len(p.body))
	p.body = append(p.body, encodedPayload...)
	p.descs = append(p.descs, Descriptor{
		ID:         id,
		Type:       p.typ,
		Offset:     offset,
		EncodedLen: int64(len(encodedPayload)),
		RawLen:     rawLen,
	})
}

// Size returns the current accumulated body size in bytes.
func (p *Packer) Size() int64 { return int64(len(p.body)) }

// Empty reports whether the packer holds no blobs.
func (p *Packer) Empty() bool { return len(p.descs) == 0 }

// Type is the blob.Type this packer accumulates.
func (p *Packer) Type() blob.Type { return p.typ }

// FlushedPack is the result of a successful Flush: a finalized,
// content-addressed pack ready for the PackSaver to persist.
type FlushedPack struct {
	ID       blob.ID
	Bytes    []byte
	Descs    []Descriptor
	MetaSize int64 // size of the encoded trailer, for GC accounting
}

// Flush serializes the descriptor table, encrypts it through env,
// appends it and its length to the body, computes the pack's
// content-addressed ID, and resets the Packer to empty. It returns
// (nil, nil) if the Packer held no blobs.
func (p *Packer) Flush(env *envelope.Envelope) (*FlushedPack, error) {
	if p.Empty() {
		return nil, nil
	}

	plainTrailer, err := MarshalDescriptors(p.descs)
	if err != nil {
		return nil, err
	}
	encodedTrailer, err := env.Encode(plainTrailer)
	if err != nil {
		return nil, err
	}

	full := make([]byte, 0, len(p.body)+len(encodedTrailer)+TrailerLenSize)
	full = append(full, p.body...)
	full = append(full, encodedTrailer...)
	full = AppendTrailerLen(full, len(encodedTrailer))

	id := blob.Compute(full)
	flushed := &FlushedPack{
		ID:       id,
		Bytes:    full,
		Descs:    p.descs,
		MetaSize: int64(len(encodedTrailer)),
	}

	p.body = nil
	p.descs = nil
	return flushed, nil
}
