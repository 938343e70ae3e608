package qorus

// LayerWeights holds the tensor views of one transformer block, in
// on-disk order. Each Q4_0 weight's NE[0] is the projection's output
// width (GemvQ4F32's M, the row count) and NE[1] is its contiguous
// input width (GemvQ4F32's N, checked %32==0), the row-major
// convention for the quantized block layout, so a non-square
// projection like wk/w_gate stores its output-size rows first, not
// the disk-order input-size-first shape.
type LayerWeights struct {
	AttnNorm Tensor // f32 [dim]
	WQ       Tensor // Q4_0 [dim, dim]
	WK       Tensor // Q4_0 [kv_dim, dim]
	WV       Tensor // Q4_0 [kv_dim, dim]
	WO       Tensor // Q4_0 [dim, dim]
	FFNNorm  Tensor // f32 [dim]
	WGate    Tensor // Q4_0 [hidden_dim, dim]
	WUp      Tensor // Q4_0 [hidden_dim, dim]
	WDown    Tensor // Q4_0 [dim, hidden_dim]
}

// Graph is the full set of tensor views for every weight of every
// layer, produced by BuildGraph.
type Graph struct {
	TokenEmbd  Tensor // f32 [vocab_size, dim]
	OutputNorm Tensor // f32 [dim]
	Output     Tensor // f32 [vocab_size, dim]
	Layers     []LayerWeights

	// RopeFreqs is the per-channel inverse frequency table for one
	// attention head, precomputed once by BuildGraph rather than
	// recomputed every forward step. It is an ordinary Go slice; a
	// copy of it is parked in the arena's base region.
	RopeFreqs []float32
}

// cursor walks the mmap region in fixed disk order, verifying every
// step stays within the file and advancing by 64-byte padded strides.
type cursor struct {
	data []byte
	off  uint64
}

func (c *cursor) tensor(dtype DType, name string, ne [4]uint64) (Tensor, error) {
	t, err := NewTensorView(c.data, c.off, dtype, name, ne)
	if err != nil {
		return t, err
	}
	size := uint64(len(t.Data))
	padded, ok := alignUp64(size)
	if !ok {
		return t, wrapf(ErrOverflow, "tensor %q padded size overflow", name)
	}
	next, overflow := checkedAdd(c.off, padded)
	if overflow || next > uint64(len(c.data)) {
		return t, wrapf(ErrInvalidSize, "tensor %q: cursor %d + padded %d exceeds file size %d", name, c.off, padded, len(c.data))
	}
	c.off = next
	return t, nil
}

// BuildGraph walks mf's mmap region in canonical order and produces a
// Tensor view for every weight of every layer, verifying at each step
// that the cursor stays within the file and the declared shape agrees
// with the header config. On any failure it returns a typed error and
// leaves no partial graph for the caller.
//
// Views themselves are ordinary Go values owned by the returned
// *Graph; arena is still exercised here to precompute and freeze the
// RoPE frequency table, which genuinely is per-model,
// position-independent state that must survive every subsequent
// Reset.
func BuildGraph(mf *ModelFile, arena *Arena) (*Graph, error) {
	h := mf.Header
	dim := uint64(h.Dim)
	hidden := uint64(h.HiddenDim)
	kvDim := uint64(h.KVDim())
	vocab := uint64(h.VocabSize)

	c := cursor{data: mf.Bytes(), off: headerSize}
	g := &Graph{Layers: make([]LayerWeights, h.NLayers)}

	var err error
	if g.TokenEmbd, err = c.tensor(DTypeF32, "token_embd", [4]uint64{vocab, dim, 1, 1}); err != nil {
		return nil, err
	}
	if g.OutputNorm, err = c.tensor(DTypeF32, "output_norm", [4]uint64{dim, 1, 1, 1}); err != nil {
		return nil, err
	}
	if g.Output, err = c.tensor(DTypeF32, "output", [4]uint64{vocab, dim, 1, 1}); err != nil {
		return nil, err
	}

	for l := uint32(0); l < h.NLayers; l++ {
		lw := &g.Layers[l]
		if lw.AttnNorm, err = c.tensor(DTypeF32, "attn_norm", [4]uint64{dim, 1, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WQ, err = c.tensor(DTypeQ4_0, "wq", [4]uint64{dim, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WK, err = c.tensor(DTypeQ4_0, "wk", [4]uint64{kvDim, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WV, err = c.tensor(DTypeQ4_0, "wv", [4]uint64{kvDim, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WO, err = c.tensor(DTypeQ4_0, "wo", [4]uint64{dim, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.FFNNorm, err = c.tensor(DTypeF32, "ffn_norm", [4]uint64{dim, 1, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WGate, err = c.tensor(DTypeQ4_0, "w_gate", [4]uint64{hidden, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WUp, err = c.tensor(DTypeQ4_0, "w_up", [4]uint64{hidden, dim, 1, 1}); err != nil {
			return nil, err
		}
		if lw.WDown, err = c.tensor(DTypeQ4_0, "w_down", [4]uint64{dim, hidden, 1, 1}); err != nil {
			return nil, err
		}
	}

	g.RopeFreqs = RoPEFreqs(int(h.HeadDim()), h.RopeFreqBase)
	// Park a copy in the arena's base region so it participates in
	// the documented base/scratch split even though the Go slice
	// above (GC-owned) is what the forward executor actually reads;
	// this freezes that region against every subsequent Reset for
	// state that must outlive it.
	frozen, err := arena.AllocF32(uint64(len(g.RopeFreqs)))
	if err != nil {
		return nil, err
	}
	copy(frozen, g.RopeFreqs)
	if err := arena.SetBase(); err != nil {
		return nil, err
	}

	return g, nil
}
