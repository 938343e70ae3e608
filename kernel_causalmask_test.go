package qorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCausalMask3x3MatchesWorkedExample checks a worked example: a
// 3x3 matrix of ones masked with -1e9 yields
// row0=[1,-1e9,-1e9], row1=[1,1,-1e9], row2=[1,1,1].
func TestCausalMask3x3MatchesWorkedExample(t *testing.T) {
	scores := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}
	require.NoError(t, CausalMask(scores, 3, -1e9))

	want := []float32{
		1, -1e9, -1e9,
		1, 1, -1e9,
		1, 1, 1,
	}
	assert.Equal(t, want, scores)
}

func TestCausalMaskSingleRowIsNoOp(t *testing.T) {
	scores := []float32{7}
	require.NoError(t, CausalMask(scores, 1, -1e9))
	assert.Equal(t, []float32{7}, scores)
}

func TestCausalMaskRejectsNonSquareLength(t *testing.T) {
	require.ErrorIs(t, CausalMask(make([]float32, 5), 3, -1e9), ErrInvalidSize)
}

// TestCausalMaskLargerMatrixBoundaryPartitioning exercises the
// scalar-prefix / 8-wide store-only / scalar-tail row partitioning on
// a row count that straddles an 8-column boundary.
func TestCausalMaskLargerMatrixBoundaryPartitioning(t *testing.T) {
	const l = 20
	scores := make([]float32, l*l)
	for i := range scores {
		scores[i] = 1
	}
	require.NoError(t, CausalMask(scores, l, -1))

	for i := 0; i < l; i++ {
		for j := 0; j < l; j++ {
			v := scores[i*l+j]
			if j > i {
				assert.Equalf(t, float32(-1), v, "row %d col %d should be masked", i, j)
			} else {
				assert.Equalf(t, float32(1), v, "row %d col %d should be unmasked", i, j)
			}
		}
	}
}
