package qorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocAlignment(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	b1, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), a.Head(), "a 10-byte alloc rounds the head up to 64")

	b2, err := a.Alloc(100)
	require.NoError(t, err)
	assert.Equal(t, uint64(64+128), a.Head())

	assert.NotPanics(t, func() {
		b1[0] = 1
		b2[0] = 2
	})
}

func TestArenaOomOnExhaustion(t *testing.T) {
	a, err := NewArena(64)
	require.NoError(t, err)

	_, err = a.Alloc(64)
	require.NoError(t, err)

	_, err = a.Alloc(1)
	require.ErrorIs(t, err, ErrArenaOom)
}

func TestArenaResetReclaimsScratchNotBase(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	_, err = a.Alloc(128)
	require.NoError(t, err)
	require.NoError(t, a.SetBase())
	assert.Equal(t, uint64(128), a.Base())

	_, err = a.Alloc(256)
	require.NoError(t, err)
	assert.Equal(t, uint64(128+256), a.Head())

	require.NoError(t, a.Reset())
	assert.Equal(t, a.Base(), a.Head(), "reset returns head to the frozen base, not zero")
}

func TestArenaSetBaseTwiceErrors(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)
	require.NoError(t, a.SetBase())
	require.ErrorIs(t, a.SetBase(), ErrInvalidArg)
}

func TestArenaAllocF32ReturnsAlignedSlice(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	f, err := a.AllocF32(8)
	require.NoError(t, err)
	assert.Len(t, f, 8)
	for i := range f {
		assert.Zero(t, f[i])
	}
	f[3] = 1.5
	assert.Equal(t, float32(1.5), f[3])
}
