package qorus

// KVCache is the long-lived per-layer key/value store: one contiguous
// f32 buffer indexed [layer, kv=0(K)|1(V), position, head, channel],
// zero-initialized at allocation, append-only, with no eviction.
type KVCache struct {
	data      []float32
	nLayers   uint64
	maxSeqLen uint64
	nKVHeads  uint64
	headDim   uint64
}

// AllocKVCache allocates the KV cache sized for mf's header config.
func AllocKVCache(mf *ModelFile) (*KVCache, error) {
	h := mf.Header
	nLayers := uint64(h.NLayers)
	maxSeq := uint64(h.MaxSeqLen)
	nKV := uint64(h.NKVHeads)
	headDim := uint64(h.HeadDim())

	n, overflow := checkedMul(nLayers, 2)
	if overflow {
		return nil, wrapf(ErrOverflow, "KV cache size")
	}
	for _, f := range []uint64{maxSeq, nKV, headDim} {
		n, overflow = checkedMul(n, f)
		if overflow {
			return nil, wrapf(ErrOverflow, "KV cache size")
		}
	}

	return &KVCache{
		data:      make([]float32, n),
		nLayers:   nLayers,
		maxSeqLen: maxSeq,
		nKVHeads:  nKV,
		headDim:   headDim,
	}, nil
}

func (kv *KVCache) offset(layer uint32, isValue bool, position int, head uint32) uint64 {
	kvIdx := uint64(0)
	if isValue {
		kvIdx = 1
	}
	return ((uint64(layer)*2+kvIdx)*kv.maxSeqLen+uint64(position))*kv.nKVHeads*kv.headDim + uint64(head)*kv.headDim
}

// WriteKV writes the key and value vectors (each headDim long, for
// head kvHead) of layer at the given absolute position.
func (kv *KVCache) WriteKV(layer uint32, kvHead uint32, position int, k, v []float32) error {
	if position < 0 || uint64(position) >= kv.maxSeqLen {
		return wrapf(ErrInvalidArg, "KV write: position %d out of range [0,%d)", position, kv.maxSeqLen)
	}
	if uint64(len(k)) != kv.headDim || uint64(len(v)) != kv.headDim {
		return wrapf(ErrInvalidSize, "KV write: vector length must be head_dim=%d", kv.headDim)
	}
	koff := kv.offset(layer, false, position, kvHead)
	voff := kv.offset(layer, true, position, kvHead)
	copy(kv.data[koff:koff+kv.headDim], k)
	copy(kv.data[voff:voff+kv.headDim], v)
	return nil
}

// Key returns the cached key vector for (layer, kvHead, position).
func (kv *KVCache) Key(layer uint32, kvHead uint32, position int) []float32 {
	off := kv.offset(layer, false, position, kvHead)
	return kv.data[off : off+kv.headDim]
}

// Value returns the cached value vector for (layer, kvHead, position).
func (kv *KVCache) Value(layer uint32, kvHead uint32, position int) []float32 {
	off := kv.offset(layer, true, position, kvHead)
	return kv.data[off : off+kv.headDim]
}

// MaxSeqLen returns the cache's position capacity.
func (kv *KVCache) MaxSeqLen() uint64 { return kv.maxSeqLen }
