package qorus

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSyntheticModel builds a minimal valid model file on disk for h,
// with deterministic (not random) weight contents, and returns its
// path. F32 tensors are filled with a small deterministic pattern;
// Q4_0 tensors are filled with deterministic, block-varying nibble
// patterns so dequantization produces a range of nonzero values
// rather than a degenerate all-equal tensor.
func writeSyntheticModel(t *testing.T, h Header) string {
	t.Helper()

	dim := uint64(h.Dim)
	hidden := uint64(h.HiddenDim)
	kvDim := uint64(h.KVDim())
	vocab := uint64(h.VocabSize)

	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.VocabSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.Dim)
	binary.LittleEndian.PutUint32(buf[16:20], h.HiddenDim)
	binary.LittleEndian.PutUint32(buf[20:24], h.NLayers)
	binary.LittleEndian.PutUint32(buf[24:28], h.NHeads)
	binary.LittleEndian.PutUint32(buf[28:32], h.NKVHeads)
	binary.LittleEndian.PutUint32(buf[32:36], h.MaxSeqLen)
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(h.RopeFreqBase))

	appendF32 := func(rows, cols uint64, seed int) {
		for r := uint64(0); r < rows; r++ {
			for c := uint64(0); c < cols; c++ {
				v := float32(((int(r)*7+int(c)*3+seed)%11)-5) * 0.01
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
				buf = append(buf, b[:]...)
			}
		}
		pad(&buf)
	}
	appendQ4 := func(rows, cols uint64, seed int) {
		blocksPerRow := cols / q4BlockElems
		for r := uint64(0); r < rows; r++ {
			for bk := uint64(0); bk < blocksPerRow; bk++ {
				var nibbles [32]byte
				for i := range nibbles {
					nibbles[i] = byte((int(r) + int(bk) + i + seed) % 16)
				}
				scale := float32(0.02)
				buf = append(buf, packQ4Block(scale, nibbles)...)
			}
		}
		pad(&buf)
	}

	appendF32(vocab, dim, 1)         // token_embd
	appendF32(1, dim, 2)             // output_norm (row vector)
	appendF32(vocab, dim, 3)         // output

	for l := 0; l < int(h.NLayers); l++ {
		appendF32(1, dim, 10+l)        // attn_norm
		appendQ4(dim, dim, 11+l)       // wq [dim,dim]
		appendQ4(kvDim, dim, 12+l)     // wk [kv_dim,dim]
		appendQ4(kvDim, dim, 13+l)     // wv [kv_dim,dim]
		appendQ4(dim, dim, 14+l)       // wo [dim,dim]
		appendF32(1, dim, 15+l)        // ffn_norm
		appendQ4(hidden, dim, 16+l)    // w_gate [hidden,dim]
		appendQ4(hidden, dim, 17+l)    // w_up [hidden,dim]
		appendQ4(dim, hidden, 18+l)    // w_down [dim,hidden]
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "model.qorus")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

// pad appends zero bytes until len(*buf) is a multiple of 64, mirroring
// the 64-byte tensor padding the graph builder's cursor expects.
func pad(buf *[]byte) {
	n := uint64(len(*buf))
	aligned, _ := alignUp64(n)
	if aligned > n {
		*buf = append(*buf, make([]byte, aligned-n)...)
	}
}
