package qorus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoPETableDuplication(t *testing.T) {
	freqs := RoPEFreqs(8, 10000)
	require.Len(t, freqs, 4)

	cosTab := make([]float32, 8)
	sinTab := make([]float32, 8)
	RoPETable(freqs, 3, cosTab, sinTab)

	for i := 0; i < 4; i++ {
		assert.Equal(t, cosTab[2*i], cosTab[2*i+1], "pair %d cos lanes must match", i)
		assert.Equal(t, sinTab[2*i], sinTab[2*i+1], "pair %d sin lanes must match", i)
	}
}

func TestApplyRoPEAtZeroPositionIsIdentity(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	freqs := RoPEFreqs(8, 10000)
	cosTab, _ := a.AllocF32(8)
	sinTab, _ := a.AllocF32(8)
	RoPETable(freqs, 0, cosTab, sinTab)

	x, _ := a.AllocF32(8)
	orig := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	copy(x, orig)

	require.NoError(t, ApplyRoPE(x, cosTab, sinTab))
	for i, v := range orig {
		assert.InDeltaf(t, v, x[i], 1e-5, "position 0 rotates by angle 0: identity")
	}
}

func TestApplyRoPERotationMatchesManualFormula(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	freqs := RoPEFreqs(4, 10000)
	cosTab, _ := a.AllocF32(4)
	sinTab, _ := a.AllocF32(4)
	RoPETable(freqs, 5, cosTab, sinTab)

	x, _ := a.AllocF32(4)
	x[0], x[1] = 1, 0
	x[2], x[3] = 0, 1

	x0, x1 := x[0], x[1]
	angle := float64(5) * float64(freqs[0])
	wantX0 := float32(float64(x0)*math.Cos(angle) - float64(x1)*math.Sin(angle))
	wantX1 := float32(float64(x1)*math.Cos(angle) + float64(x0)*math.Sin(angle))

	require.NoError(t, ApplyRoPE(x, cosTab, sinTab))
	assert.InDeltaf(t, wantX0, x[0], 1e-4, "")
	assert.InDeltaf(t, wantX1, x[1], 1e-4, "")
}

func TestApplyRoPERejectsBrokenDuplication(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)
	x, _ := a.AllocF32(4)
	cosTab, _ := a.AllocF32(4)
	sinTab, _ := a.AllocF32(4)
	cosTab[0], cosTab[1] = 1, 2 // break the duplication contract

	require.Error(t, ApplyRoPE(x, cosTab, sinTab))
}
