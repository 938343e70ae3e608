package qorus

import (
	"unsafe"

	"github.com/qorus-infer/qorus/util/slicex"
	"github.com/qorus-infer/qorus/util/stringx"
)

// Stats reports size/parameter-count figures for a built Graph, using
// the same scalar-formatting idiom (scalar.go) this module's GGUF
// ancestry used for reporting file size and parameter counts.
type Stats struct {
	FileBytes     ModelBytesScalar
	Parameters    ParametersScalar
	BitsPerWeight BitsPerWeightScalar
	LayerOffsets  []uint64 // absolute file offset of each layer's first tensor, ascending
}

// Fingerprint returns a short, stable content hash of the model file's
// path and header, suitable as a cache/session key across
// SessionPool.NewSession calls, built with util/stringx's hashing
// helpers (util/stringx/sum.go) rather than hand-rolled hashing.
func (m *ModelFile) Fingerprint() string {
	return stringx.SumBySHA256(m.Path, m.Header.String())
}

// Stats computes size/parameter/bits-per-weight figures for g over
// mf's mmapped file.
func (g *Graph) Stats(mf *ModelFile) Stats {
	var params uint64
	var offsets []uint64

	add := func(t Tensor) {
		n := t.NE[0]
		for _, e := range t.NE[1:] {
			if e > 0 {
				n *= e
			}
		}
		params += n
	}
	add(g.TokenEmbd)
	add(g.OutputNorm)
	add(g.Output)
	for i := range g.Layers {
		l := &g.Layers[i]
		offsets = append(offsets, tensorFileOffset(mf, l.AttnNorm))
		add(l.AttnNorm)
		add(l.WQ)
		add(l.WK)
		add(l.WV)
		add(l.WO)
		add(l.FFNNorm)
		add(l.WGate)
		add(l.WUp)
		add(l.WDown)
	}

	fileBytes := uint64(mf.mmap.Len())
	bpw := float64(0)
	if params > 0 {
		bpw = float64(fileBytes-headerSize) * 8 / float64(params)
	}

	return Stats{
		FileBytes:     ModelBytesScalar(fileBytes),
		Parameters:    ParametersScalar(params),
		BitsPerWeight: BitsPerWeightScalar(bpw),
		LayerOffsets:  offsets,
	}
}

// LayerAt returns the index of the layer whose weight block contains
// fileOffset, using a binary search over the ascending offsets
// collected by Stats via util/slicex's generic search rather than a
// hand-rolled one.
func (s Stats) LayerAt(fileOffset uint64) int {
	if len(s.LayerOffsets) == 0 {
		return -1
	}
	idx := slicex.UpperBound(s.LayerOffsets, fileOffset) - 1
	if idx < 0 {
		return -1
	}
	return idx
}

// tensorFileOffset recovers t's absolute offset into mf's mmap region
// from its Data slice's address. Used only for the diagnostic
// LayerOffsets report above.
func tensorFileOffset(mf *ModelFile, t Tensor) uint64 {
	base := mf.Bytes()
	if len(base) == 0 || len(t.Data) == 0 {
		return 0
	}
	baseAddr := uintptr(unsafe.Pointer(&base[0]))
	tAddr := uintptr(unsafe.Pointer(&t.Data[0]))
	if tAddr < baseAddr {
		return 0
	}
	return uint64(tAddr - baseAddr)
}
