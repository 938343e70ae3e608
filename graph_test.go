package qorus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraphShapesMatchHeaderConfig(t *testing.T) {
	h := testHeader()
	path := writeSyntheticModel(t, h)

	mf, err := LoadModel(path)
	require.NoError(t, err)
	defer func() { _ = mf.Close() }()

	arena, err := NewArena(1 << 16)
	require.NoError(t, err)

	g, err := BuildGraph(mf, arena)
	require.NoError(t, err)

	dim := uint64(h.Dim)
	kvDim := uint64(h.KVDim())
	hidden := uint64(h.HiddenDim)
	vocab := uint64(h.VocabSize)

	assert.Equal(t, [2]uint64{vocab, dim}, [2]uint64{g.TokenEmbd.NE[0], g.TokenEmbd.NE[1]})
	assert.Equal(t, [2]uint64{vocab, dim}, [2]uint64{g.Output.NE[0], g.Output.NE[1]})
	require.Len(t, g.Layers, int(h.NLayers))

	lw := g.Layers[0]
	assert.Equal(t, [2]uint64{dim, dim}, [2]uint64{lw.WQ.NE[0], lw.WQ.NE[1]})
	assert.Equal(t, [2]uint64{kvDim, dim}, [2]uint64{lw.WK.NE[0], lw.WK.NE[1]}, "wk stores kv_dim output rows")
	assert.Equal(t, [2]uint64{kvDim, dim}, [2]uint64{lw.WV.NE[0], lw.WV.NE[1]})
	assert.Equal(t, [2]uint64{dim, dim}, [2]uint64{lw.WO.NE[0], lw.WO.NE[1]})
	assert.Equal(t, [2]uint64{hidden, dim}, [2]uint64{lw.WGate.NE[0], lw.WGate.NE[1]})
	assert.Equal(t, [2]uint64{hidden, dim}, [2]uint64{lw.WUp.NE[0], lw.WUp.NE[1]})
	assert.Equal(t, [2]uint64{dim, hidden}, [2]uint64{lw.WDown.NE[0], lw.WDown.NE[1]})

	assert.Len(t, g.RopeFreqs, int(h.HeadDim())/2)
	assert.True(t, arena.Head() > 0, "RoPE freqs are parked in the arena base region")
}

func TestBuildGraphRejectsTruncatedFile(t *testing.T) {
	h := testHeader()
	path := writeSyntheticModel(t, h)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	truncated := filepath.Join(t.TempDir(), "truncated.qorus")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)-128], 0o644))

	mf, err := LoadModel(truncated)
	require.NoError(t, err) // header alone is still valid and small enough to open
	defer func() { _ = mf.Close() }()

	arena, err := NewArena(1 << 16)
	require.NoError(t, err)
	_, err = BuildGraph(mf, arena)
	require.Error(t, err, "cursor must detect the truncated tensor payload")
}
