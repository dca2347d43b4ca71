package backuperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	err := NotFoundf("blob %s missing", "abc123")
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindCorruption))
}

func TestIsMatchesThroughFmtWrap(t *testing.T) {
	inner := Decryptf("gcm open failed")
	wrapped := fmt.Errorf("repository: unwrap master key: %w", inner)
	assert.True(t, Is(wrapped, KindDecrypt))
}

func TestErrorsIsWorksAgainstSentinels(t *testing.T) {
	err := Corruptionf("pack trailer out of range")
	assert.True(t, errors.Is(err, ErrCorruption))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestBackendfCarriesPath(t *testing.T) {
	err := Backendf("objects/ab/abcdef", errors.New("permission denied"))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "objects/ab/abcdef", e.Path)
	assert.Equal(t, KindBackend, e.Kind)
	assert.Contains(t, err.Error(), "objects/ab/abcdef")
}

func TestKindStringValues(t *testing.T) {
	assert.Equal(t, "corruption", KindCorruption.String())
	assert.Equal(t, "not found", KindNotFound.String())
	assert.Equal(t, "ambiguous prefix", KindAmbiguousPrefix.String())
}
