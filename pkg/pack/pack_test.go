package pack

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/envelope"
)

func testEnvelope(t *testing.T) *envelope.Envelope {
	t.Helper()
	var key [envelope.KeySize]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	return envelope.New(key, envelope.LevelDefault)
}

func TestEmptyPackerFlushesNothing(t *testing.T) {
	p := New(blob.TypeData)
	assert.True(t, p.Empty())

	flushed, err := p.Flush(testEnvelope(t))
	require.NoError(t, err)
	assert.Nil(t, flushed)
}

func TestFlushedPackRoundTripsThroughTrailer(t *testing.T) {
	env := testEnvelope(t)
	p := New(blob.TypeData)

	payloads := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma gamma gamma")}
	ids := make([]blob.ID, len(payloads))
	for i, raw := range payloads {
		id := blob.Compute(raw)
		ids[i] = id
		encoded, err := env.Encode(raw)
		require.NoError(t, err)
		p.AddBlob(id, encoded, int64(len(raw)))
	}
	assert.False(t, p.Empty())

	flushed, err := p.Flush(env)
	require.NoError(t, err)
	require.NotNil(t, flushed)
	assert.Equal(t, blob.Compute(flushed.Bytes), flushed.ID)
	assert.True(t, p.Empty(), "Flush resets the packer")

	encodedTrailer, bodyLen, err := SplitTrailer(flushed.Bytes)
	require.NoError(t, err)

	trailerPlain, err := env.Decode(encodedTrailer)
	require.NoError(t, err)
	descs, err := UnmarshalDescriptors(trailerPlain)
	require.NoError(t, err)
	require.Len(t, descs, len(payloads))

	require.NoError(t, ValidatePartition(descs, int64(bodyLen)))

	for i, d := range descs {
		assert.Equal(t, ids[i], d.ID)
		payload := flushed.Bytes[d.Offset : d.Offset+d.EncodedLen]
		plain, err := env.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, payloads[i], plain)
		assert.Equal(t, blob.Compute(plain), d.ID)
	}
}

func TestValidatePartitionRejectsGap(t *testing.T) {
	descs := []Descriptor{
		{ID: blob.Compute([]byte("a")), Offset: 0, EncodedLen: 10},
		{ID: blob.Compute([]byte("b")), Offset: 20, EncodedLen: 10},
	}
	err := ValidatePartition(descs, 30)
	assert.Error(t, err)
}

func TestSplitTrailerRejectsTruncatedInput(t *testing.T) {
	_, _, err := SplitTrailer([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSplitTrailerRejectsBogusLength(t *testing.T) {
	body := AppendTrailerLen([]byte("short"), 9999999)
	_, _, err := SplitTrailer(body)
	assert.Error(t, err)
}

func TestMarshalUnmarshalDescriptorsRoundTrip(t *testing.T) {
	descs := []Descriptor{
		{ID: blob.Compute([]byte("x")), Type: blob.TypeData, Offset: 0, EncodedLen: 5, RawLen: 4},
		{ID: blob.Compute([]byte("y")), Type: blob.TypeTree, Offset: 5, EncodedLen: 7, RawLen: 6},
	}
	data, err := MarshalDescriptors(descs)
	require.NoError(t, err)

	got, err := UnmarshalDescriptors(data)
	require.NoError(t, err)
	assert.Equal(t, descs, got)
}
