package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func key(b byte) [32]byte {
	var k [32]byte
	k[0] = b
	return k
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New[string](2)
	_, ok := c.Get(key(1))
	assert.False(t, ok)
}

func TestAddThenGetHits(t *testing.T) {
	c := New[string](2)
	c.Add(key(1), "one")
	v, ok := c.Get(key(1))
	assert.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](2)
	c.Add(key(1), "one")
	c.Add(key(2), "two")
	c.Add(key(3), "three") // evicts key(1), the least recently used

	_, ok := c.Get(key(1))
	assert.False(t, ok)

	v, ok := c.Get(key(2))
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	v, ok = c.Get(key(3))
	assert.True(t, ok)
	assert.Equal(t, "three", v)
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New[string](2)
	c.Add(key(1), "one")
	c.Add(key(2), "two")

	c.Get(key(1)) // touch key(1), making key(2) the least recently used
	c.Add(key(3), "three")

	_, ok := c.Get(key(2))
	assert.False(t, ok, "key(2) should have been evicted instead of key(1)")

	_, ok = c.Get(key(1))
	assert.True(t, ok)
}

func TestAddOverwritesExistingKeyWithoutGrowing(t *testing.T) {
	c := New[string](2)
	c.Add(key(1), "one")
	c.Add(key(1), "uno")
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get(key(1))
	assert.True(t, ok)
	assert.Equal(t, "uno", v)
}

func TestLenTracksEntryCount(t *testing.T) {
	c := New[string](3)
	assert.Equal(t, 0, c.Len())
	c.Add(key(1), "one")
	c.Add(key(2), "two")
	assert.Equal(t, 2, c.Len())
}
