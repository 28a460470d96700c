package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNextPrevWrapAround(t *testing.T) {
	r := New([]byte{0, 1, 2, 3})

	assert.Equal(t, byte(1), r.Next(0))
	assert.Equal(t, byte(0), r.Next(3))
	assert.Equal(t, byte(3), r.Prev(0))
	assert.Equal(t, byte(2), r.Prev(3))
}

func TestNextPrevOfUnknownIDIsSentinel(t *testing.T) {
	r := New([]byte{0, 1, 2})

	assert.Equal(t, sentinel, r.Next(9))
	assert.Equal(t, sentinel, r.Prev(9))
}

func TestRemoveShiftsAndShrinks(t *testing.T) {
	r := New([]byte{0, 1, 2, 3})
	r.Remove(1)

	assert.Equal(t, 3, r.Size())
	assert.False(t, r.Contains(1))
	assert.Equal(t, byte(2), r.Next(0))
}

func TestMinID(t *testing.T) {
	r := New([]byte{5, 2, 9})
	assert.Equal(t, byte(2), r.MinID())
}

func TestInstallReplacesWholesale(t *testing.T) {
	r := New([]byte{0, 1})
	r.Install([]byte{3, 0, 2, 3})
	assert.Equal(t, []byte{3, 0, 2, 3}, r.IDs())
}

// For any ring of distinct IDs, Next and Prev are mutual inverses.
func TestNextPrevInverseProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		ids := make([]byte, n)
		for i := range ids {
			ids[i] = byte(i)
		}
		r := New(ids)

		for _, id := range ids {
			assert.Equal(t, id, r.Prev(r.Next(id)))
			assert.Equal(t, id, r.Next(r.Prev(id)))
		}
	})
}
