package repository

import (
	"fmt"

	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/pack"
)

// ReadPackRaw reads a whole pack file, decodes its trailer, validates
// that descriptor offsets exactly partition the body, and decodes
// every blob payload, checking its hash against its descriptor ID. It
// implements verify.Repo's `--unreferenced` full-pack-decode mode.
func (r *Repository) ReadPackRaw(id blob.ID) ([]byte, error) {
	path := fmt.Sprintf("%s/%s/%s", objectsDir, id.FanoutDir(), id.String())
	raw, err := r.b.Read(path)
	if err != nil {
		return nil, backuperrors.Backendf(path, err)
	}

	encodedTrailer, bodyLen, err := pack.SplitTrailer(raw)
	if err != nil {
		return nil, err
	}
	trailerPlain, err := r.env.Decode(encodedTrailer)
	if err != nil {
		return nil, err
	}
	descs, err := pack.UnmarshalDescriptors(trailerPlain)
	if err != nil {
		return nil, err
	}
	if err := pack.ValidatePartition(descs, int64(bodyLen)); err != nil {
		return nil, err
	}

	for _, d := range descs {
		payload := raw[d.Offset : d.Offset+d.EncodedLen]
		plain, err := r.env.Decode(payload)
		if err != nil {
			return nil, backuperrors.Decryptf("pack %s blob %s: %w", id.String(), d.ID.String(), err)
		}
		if blob.Compute(plain) != d.ID {
			return nil, backuperrors.Corruptionf("pack %s: blob %s hash mismatch", id.String(), d.ID.String())
		}
	}
	return raw, nil
}
