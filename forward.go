package qorus

import (
	"math"
	"time"
)

// State is the per-session lifecycle:
// Uninitialized → Loaded → GraphBuilt → KVAllocated → Ready ↔ Running → Freed.
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateGraphBuilt
	StateKVAllocated
	StateReady
	StateRunning
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateLoaded:
		return "Loaded"
	case StateGraphBuilt:
		return "GraphBuilt"
	case StateKVAllocated:
		return "KVAllocated"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateFreed:
		return "Freed"
	default:
		return "Unknown"
	}
}

// Model is the single-owner, single-threaded-per-call handle spanning
// every component of the engine: the mmapped weight file, the arena,
// the tensor graph, and the KV cache. A process may host multiple
// sessions by giving each its own Model built from a shared, read-only
// *ModelFile.
type Model struct {
	File  *ModelFile
	Arena *Arena
	Graph *Graph
	KV    *KVCache

	state    State
	poisoned bool
}

// defaultArenaSize picks a scratch arena generous enough for the
// per-call activation buffers of Forward, scaled to the model's own
// dimensions rather than a fixed constant.
func defaultArenaSize(h Header, maxWindow uint64) uint64 {
	dim := uint64(h.Dim)
	hidden := uint64(h.HiddenDim)
	maxSeq := uint64(h.MaxSeqLen)
	headDim := uint64(h.HeadDim())

	perCall := 2*dim*maxWindow + // xWindow, qWindow
		2*dim + // h, woOut/h2 share sizing
		2*uint64(h.KVDim()) + // k, v scratch
		maxWindow*maxWindow + // winScores
		2*maxSeq + // combined, probs
		dim*maxWindow + // attnOutWindow
		2*hidden + // gate, up
		dim + // ffnOut
		2*headDim // rope cos/sin table scratch (duplicated pair table)

	bytes := perCall * 4
	// Generous headroom for 64-byte rounding of the 16 per-call
	// allocations plus the frozen RoPE frequency table set aside during BuildGraph.
	bytes += 64 * 64
	return bytes
}

// NewModel loads path, allocates a scratch arena sized for windows up
// to maxWindow tokens, and leaves the session in StateLoaded, ready
// for BuildGraph.
func NewModel(path string, maxWindow uint64, opts ...LoadOption) (*Model, error) {
	mf, err := LoadModel(path, opts...)
	if err != nil {
		return nil, err
	}
	if maxWindow == 0 {
		maxWindow = 1
	}
	arena, err := NewArena(defaultArenaSize(mf.Header, maxWindow))
	if err != nil {
		_ = mf.Close()
		return nil, err
	}
	return &Model{File: mf, Arena: arena, state: StateLoaded}, nil
}

// BuildGraph walks the mmap and populates m.Graph, transitioning
// StateLoaded → StateGraphBuilt.
func (m *Model) BuildGraph() error {
	if m.state != StateLoaded {
		return wrapf(ErrInvalidState, "BuildGraph requires state Loaded, have %s", m.state)
	}
	g, err := BuildGraph(m.File, m.Arena)
	if err != nil {
		return err
	}
	m.Graph = g
	m.state = StateGraphBuilt
	return nil
}

// AllocKVCache allocates m.KV, transitioning StateGraphBuilt →
// StateReady (KVAllocated and Ready are adjacent with no intervening
// trigger call, so this single call lands on Ready).
func (m *Model) AllocKVCache() error {
	if m.state != StateGraphBuilt {
		return wrapf(ErrInvalidState, "AllocKVCache requires state GraphBuilt, have %s", m.state)
	}
	kv, err := AllocKVCache(m.File)
	if err != nil {
		return err
	}
	m.KV = kv
	m.state = StateReady
	return nil
}

// Free releases the arena, KV cache, and mmap, transitioning to
// StateFreed.
func (m *Model) Free() error {
	err := m.File.Close()
	m.Arena = nil
	m.Graph = nil
	m.KV = nil
	m.state = StateFreed
	return err
}

// State returns the session's current lifecycle state.
func (m *Model) State() State { return m.state }

const rmsNormEps = 1e-6
const causalMaskValue = float32(-1e9)

// Forward evaluates tokens[0..len(tokens)) starting at basePosition,
// writing K/V for every position but logits only for the last.
// Requires basePosition + len(tokens) <= max_seq_len and
// len(tokens) >= 1.
func (m *Model) Forward(tokens []int32, basePosition int, outLogits []float32, opts ...ForwardOption) error {
	if m.state != StateReady {
		return wrapf(ErrInvalidState, "Forward requires state Ready, have %s", m.state)
	}
	if m.poisoned {
		return ErrSessionPoisoned
	}

	var fo forwardOptions
	for _, opt := range opts {
		opt(&fo)
	}

	s := len(tokens)
	if s < 1 {
		return wrapf(ErrInvalidArg, "Forward: need at least one token")
	}
	h := m.File.Header
	maxSeq := uint64(h.MaxSeqLen)
	if uint64(basePosition)+uint64(s) > maxSeq {
		return wrapf(ErrInvalidArg, "Forward: basePosition %d + S %d exceeds max_seq_len %d", basePosition, s, maxSeq)
	}
	if uint64(len(outLogits)) != uint64(h.VocabSize) {
		return wrapf(ErrInvalidSize, "Forward: outLogits length %d != vocab_size %d", len(outLogits), h.VocabSize)
	}

	m.state = StateRunning
	err := m.runForward(tokens, basePosition, outLogits, &fo)
	if err != nil {
		m.poisoned = true
		m.state = StateReady
		return err
	}
	m.state = StateReady
	return nil
}

func (m *Model) runForward(tokens []int32, basePosition int, outLogits []float32, fo *forwardOptions) error {
	if err := m.Arena.Reset(); err != nil {
		return err
	}

	h := m.File.Header
	dim := uint64(h.Dim)
	hidden := uint64(h.HiddenDim)
	headDim := uint64(h.HeadDim())
	nHeads := uint64(h.NHeads)
	nKVHeads := uint64(h.NKVHeads)
	kvDim := uint64(h.KVDim())
	groupSize := nHeads / nKVHeads
	s := uint64(len(tokens))
	scale := float32(1 / math.Sqrt(float64(headDim)))

	a := m.Arena
	xWindow, err := a.AllocF32(s * dim)
	if err != nil {
		return err
	}
	qWindow, err := a.AllocF32(s * dim)
	if err != nil {
		return err
	}
	hBuf, err := a.AllocF32(dim)
	if err != nil {
		return err
	}
	kBuf, err := a.AllocF32(kvDim)
	if err != nil {
		return err
	}
	vBuf, err := a.AllocF32(kvDim)
	if err != nil {
		return err
	}
	winScores, err := a.AllocF32(s * s)
	if err != nil {
		return err
	}
	combined, err := a.AllocF32(maxSeqBound(h, s))
	if err != nil {
		return err
	}
	probs, err := a.AllocF32(maxSeqBound(h, s))
	if err != nil {
		return err
	}
	attnOutWindow, err := a.AllocF32(s * dim)
	if err != nil {
		return err
	}
	woOut, err := a.AllocF32(dim)
	if err != nil {
		return err
	}
	h2Buf, err := a.AllocF32(dim)
	if err != nil {
		return err
	}
	gateBuf, err := a.AllocF32(hidden)
	if err != nil {
		return err
	}
	upBuf, err := a.AllocF32(hidden)
	if err != nil {
		return err
	}
	ffnOutBuf, err := a.AllocF32(dim)
	if err != nil {
		return err
	}
	cosTab, err := a.AllocF32(headDim)
	if err != nil {
		return err
	}
	sinTab, err := a.AllocF32(headDim)
	if err != nil {
		return err
	}

	// 1. Embed: copy row tokens[i] of token_embd into xWindow[i].
	embd := m.Graph.TokenEmbd.F32()
	for i, tok := range tokens {
		row := embd[uint64(tok)*dim : uint64(tok)*dim+dim]
		copy(xWindow[uint64(i)*dim:uint64(i)*dim+dim], row)
	}

	for layer := uint32(0); layer < h.NLayers; layer++ {
		lw := &m.Graph.Layers[layer]
		layerStart := time.Now()

		// Phase 1: RMSNorm -> QKV -> RoPE -> write KV, for every
		// position in the window, before any attention is read.
		// RoPE must precede the KV cache write.
		for i := uint64(0); i < s; i++ {
			pos := basePosition + int(i)
			x := xWindow[i*dim : i*dim+dim]

			if err := RMSNorm(x, lw.AttnNorm.F32(), hBuf, rmsNormEps); err != nil {
				return err
			}
			hT := f32View(hBuf, dim)
			qT := f32View(qWindow[i*dim:i*dim+dim], dim)
			if err := GemvQ4F32(lw.WQ, hT, qT); err != nil {
				return err
			}
			kT := f32View(kBuf, kvDim)
			if err := GemvQ4F32(lw.WK, hT, kT); err != nil {
				return err
			}
			vT := f32View(vBuf, kvDim)
			if err := GemvQ4F32(lw.WV, hT, vT); err != nil {
				return err
			}

			q := qWindow[i*dim : i*dim+dim]
			for qh := uint64(0); qh < nHeads; qh++ {
				RoPETable(m.Graph.RopeFreqs, pos, cosTab, sinTab)
				if err := ApplyRoPE(q[qh*headDim:(qh+1)*headDim], cosTab, sinTab); err != nil {
					return err
				}
			}
			for kvh := uint64(0); kvh < nKVHeads; kvh++ {
				RoPETable(m.Graph.RopeFreqs, pos, cosTab, sinTab)
				if err := ApplyRoPE(kBuf[kvh*headDim:(kvh+1)*headDim], cosTab, sinTab); err != nil {
					return err
				}
			}

			for kvh := uint64(0); kvh < nKVHeads; kvh++ {
				if err := m.KV.WriteKV(layer, uint32(kvh), pos, kBuf[kvh*headDim:(kvh+1)*headDim], vBuf[kvh*headDim:(kvh+1)*headDim]); err != nil {
					return err
				}
			}
		}

		for i := range attnOutWindow {
			attnOutWindow[i] = 0
		}

		// Phase 2: attention, per query head, across the whole
		// window. History columns [0,basePosition) are always
		// causally visible; the trailing [basePosition,
		// basePosition+S) window block is explicitly masked with
		// CausalMask before softmax, since a prefill window with
		// S > 1 still needs causal visibility within itself, and this
		// also degenerates correctly to a 1x1 no-op mask at S=1.
		lwin := uint64(basePosition) + s
		for qh := uint64(0); qh < nHeads; qh++ {
			kvh := qh / groupSize

			for i := uint64(0); i < s; i++ {
				for jj := uint64(0); jj < s; jj++ {
					k := m.KV.Key(layer, uint32(kvh), basePosition+int(jj))
					winScores[i*s+jj] = dotF32(qWindow[i*dim+qh*headDim:i*dim+(qh+1)*headDim], k) * scale
				}
			}
			if err := CausalMask(winScores, int(s), causalMaskValue); err != nil {
				return err
			}

			for i := uint64(0); i < s; i++ {
				q := qWindow[i*dim+qh*headDim : i*dim+(qh+1)*headDim]
				row := combined[:lwin]
				for j := uint64(0); j < uint64(basePosition); j++ {
					k := m.KV.Key(layer, uint32(kvh), int(j))
					row[j] = dotF32(q, k) * scale
				}
				copy(row[basePosition:], winScores[i*s:i*s+s])

				if err := Softmax(row, probs[:lwin]); err != nil {
					return err
				}

				out := attnOutWindow[i*dim+qh*headDim : i*dim+(qh+1)*headDim]
				for j := uint64(0); j < lwin; j++ {
					v := m.KV.Value(layer, uint32(kvh), int(j))
					w := probs[j]
					for c := uint64(0); c < headDim; c++ {
						out[c] += w * v[c]
					}
				}
			}
		}

		// x <- x + Wo * attnOut, then the FFN block, per position.
		for i := uint64(0); i < s; i++ {
			x := xWindow[i*dim : i*dim+dim]
			attnOut := f32View(attnOutWindow[i*dim:i*dim+dim], dim)
			if err := GemvQ4F32(lw.WO, attnOut, f32View(woOut, dim)); err != nil {
				return err
			}
			if err := AddF32(x, woOut, x); err != nil {
				return err
			}

			if err := RMSNorm(x, lw.FFNNorm.F32(), h2Buf, rmsNormEps); err != nil {
				return err
			}
			h2T := f32View(h2Buf, dim)
			if err := GemvQ4F32(lw.WGate, h2T, f32View(gateBuf, hidden)); err != nil {
				return err
			}
			if err := GemvQ4F32(lw.WUp, h2T, f32View(upBuf, hidden)); err != nil {
				return err
			}
			if err := SiLU(gateBuf, gateBuf); err != nil {
				return err
			}
			if err := MulF32(gateBuf, upBuf, gateBuf); err != nil {
				return err
			}
			if err := GemvQ4F32(lw.WDown, f32View(gateBuf, hidden), f32View(ffnOutBuf, dim)); err != nil {
				return err
			}
			if err := AddF32(x, ffnOutBuf, x); err != nil {
				return err
			}
		}

		if fo.tracer != nil {
			fo.tracer.Record(TraceRecord{Layer: layer, Position: uint32(basePosition) + uint32(s) - 1, Code: CodeOK, Nanos: time.Since(layerStart).Nanoseconds()})
		}
	}

	// 3. Logits for the last position of the window only.
	last := s - 1
	xLast := xWindow[last*dim : last*dim+dim]
	if err := RMSNorm(xLast, m.Graph.OutputNorm.F32(), h2Buf, rmsNormEps); err != nil {
		return err
	}
	if err := GemvF32(m.Graph.Output, f32View(h2Buf, dim), f32View(outLogits, uint64(h.VocabSize))); err != nil {
		return err
	}
	return nil
}

func maxSeqBound(h Header, s uint64) uint64 {
	n := uint64(h.MaxSeqLen)
	if s > n {
		return s
	}
	return n
}

// f32View wraps a slice as a Tensor of dtype F32 and shape [n,1,1,1],
// the minimal bookkeeping GemvQ4F32/GemmF32 need to validate shapes
// against arena-backed scratch buffers that were never built through
// NewTensorView.
func f32View(s []float32, n uint64) Tensor {
	return Tensor{Data: unsafeBytesOfF32(s), DType: DTypeF32, NE: [4]uint64{n, 1, 1, 1}, NB: [4]uint64{4, 0, 0, 0}, Name: "scratch"}
}
