package qorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMulF32(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	x, err := a.AllocF32(16)
	require.NoError(t, err)
	y, err := a.AllocF32(16)
	require.NoError(t, err)
	out, err := a.AllocF32(16)
	require.NoError(t, err)
	for i := range x {
		x[i] = float32(i)
		y[i] = float32(2 * i)
	}

	require.NoError(t, AddF32(x, y, out))
	for i := range out {
		assert.Equal(t, float32(3*i), out[i])
	}

	require.NoError(t, MulF32(x, y, out))
	for i := range out {
		assert.Equal(t, float32(i)*float32(2*i), out[i])
	}
}

func TestAddF32RejectsLengthMismatch(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)
	x, _ := a.AllocF32(8)
	y, _ := a.AllocF32(16)
	out, _ := a.AllocF32(8)
	require.ErrorIs(t, AddF32(x, y, out), ErrInvalidSize)
}
