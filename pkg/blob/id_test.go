package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIsDeterministic(t *testing.T) {
	a := Compute([]byte("hello world"))
	b := Compute([]byte("hello world"))
	assert.Equal(t, a, b)

	c := Compute([]byte("different"))
	assert.NotEqual(t, a, c)
}

func TestStringRoundTrip(t *testing.T) {
	id := Compute([]byte("round trip"))
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIDRejectsBadInput(t *testing.T) {
	_, err := ParseID("too-short")
	assert.Error(t, err)

	_, err = ParseID("zz" + id64Zeros())
	assert.Error(t, err)
}

func id64Zeros() string {
	s := make([]byte, 62)
	for i := range s {
		s[i] = '0'
	}
	return string(s)
}

func TestIsZero(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.False(t, Compute([]byte("x")).IsZero())
}

func TestFanoutDir(t *testing.T) {
	id := Compute([]byte("fanout"))
	dir := id.FanoutDir()
	assert.Len(t, dir, 2)
	assert.Equal(t, id.String()[:2], dir)
}
