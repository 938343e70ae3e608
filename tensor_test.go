package qorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTensorViewF32Strides(t *testing.T) {
	backing := make([]byte, 4*8*4) // 8 rows x 4 cols, f32
	tv, err := NewTensorView(backing, 0, DTypeF32, "w", [4]uint64{8, 4, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, uint64(8), tv.Rows())
	assert.Equal(t, uint64(4), tv.Cols())
	assert.Equal(t, uint64(16), tv.NB[0], "row stride is cols*4 bytes")
	assert.Equal(t, uint64(4), tv.NB[1])
	assert.Len(t, tv.F32(), 32)
}

func TestNewTensorViewRejectsOutOfBoundsOffset(t *testing.T) {
	backing := make([]byte, 16)
	_, err := NewTensorView(backing, 32, DTypeF32, "w", [4]uint64{1, 1, 0, 0})
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestNewTensorViewRejectsShapeExceedingBackingRegion(t *testing.T) {
	backing := make([]byte, 16)
	_, err := NewTensorView(backing, 0, DTypeF32, "w", [4]uint64{2, 4, 0, 0}) // needs 32 bytes
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestNewTensorViewRejectsZeroDim0(t *testing.T) {
	backing := make([]byte, 16)
	_, err := NewTensorView(backing, 0, DTypeF32, "w", [4]uint64{0, 4, 0, 0})
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestNewTensorViewQ4_0RowSize(t *testing.T) {
	// one row of 64 elements = 2 blocks of 32 -> 2*20 = 40 bytes/row
	backing := make([]byte, 40*3)
	tv, err := NewTensorView(backing, 0, DTypeQ4_0, "w", [4]uint64{3, 64, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(40), tv.NB[0])
	assert.Len(t, tv.Data, 40*3)
}

func TestNewTensorViewQ4_0RejectsNonMultipleOf32Cols(t *testing.T) {
	backing := make([]byte, 64)
	_, err := NewTensorView(backing, 0, DTypeQ4_0, "w", [4]uint64{1, 33, 0, 0})
	require.Error(t, err)
}
