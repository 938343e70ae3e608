package qorus

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qorus-infer/qorus/util/osx"
)

// HeaderMagic is the fixed magic number at offset 0 of a model file.
const HeaderMagic uint32 = 0x514F5231

// headerSize is the fixed size in bytes of the model file header,
// padded to a 64-byte boundary.
const headerSize = 64

// Header mirrors the 64-byte model file header.
type Header struct {
	Magic        uint32
	Version      uint32
	VocabSize    uint32
	Dim          uint32
	HiddenDim    uint32
	NLayers      uint32
	NHeads       uint32
	NKVHeads     uint32
	MaxSeqLen    uint32
	RopeFreqBase float32
}

// HeadDim returns dim / n_heads.
func (h Header) HeadDim() uint32 { return h.Dim / h.NHeads }

// KVDim returns n_kv_heads * head_dim.
func (h Header) KVDim() uint32 { return h.NKVHeads * h.HeadDim() }

// Validate checks the header's config invariants.
func (h Header) Validate() error {
	if h.Magic != HeaderMagic {
		return wrapf(ErrInvalidMagic, "got 0x%08X, want 0x%08X", h.Magic, HeaderMagic)
	}
	switch {
	case h.Dim == 0 || h.Dim%32 != 0:
		return wrapf(ErrInvalidConfig, "dim %d must be a positive multiple of 32", h.Dim)
	case h.HiddenDim == 0 || h.HiddenDim%32 != 0:
		return wrapf(ErrInvalidConfig, "hidden_dim %d must be a positive multiple of 32", h.HiddenDim)
	case h.NHeads == 0:
		return wrapf(ErrInvalidConfig, "n_heads must be > 0")
	case h.Dim%h.NHeads != 0:
		return wrapf(ErrInvalidConfig, "dim %d must be divisible by n_heads %d", h.Dim, h.NHeads)
	case h.NKVHeads == 0:
		return wrapf(ErrInvalidConfig, "n_kv_heads must be > 0")
	case h.NHeads%h.NKVHeads != 0:
		return wrapf(ErrInvalidConfig, "n_kv_heads %d must divide n_heads %d (grouped-query attention)", h.NKVHeads, h.NHeads)
	case h.NLayers == 0:
		return wrapf(ErrInvalidConfig, "n_layers must be > 0")
	case h.MaxSeqLen == 0:
		return wrapf(ErrInvalidConfig, "max_seq_len must be > 0")
	}
	return nil
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < headerSize {
		return h, wrapf(ErrFileTooSmall, "header needs %d bytes, file has %d", headerSize, len(b))
	}
	h.Magic = binary.LittleEndian.Uint32(b[0:4])
	h.Version = binary.LittleEndian.Uint32(b[4:8])
	h.VocabSize = binary.LittleEndian.Uint32(b[8:12])
	h.Dim = binary.LittleEndian.Uint32(b[12:16])
	h.HiddenDim = binary.LittleEndian.Uint32(b[16:20])
	h.NLayers = binary.LittleEndian.Uint32(b[20:24])
	h.NHeads = binary.LittleEndian.Uint32(b[24:28])
	h.NKVHeads = binary.LittleEndian.Uint32(b[28:32])
	h.MaxSeqLen = binary.LittleEndian.Uint32(b[32:36])
	h.RopeFreqBase = math.Float32frombits(binary.LittleEndian.Uint32(b[36:40]))
	return h, nil
}

// LoadStrategy selects how aggressively the mapped pages of the
// weight file are faulted in.
type LoadStrategy int

const (
	// StrategyLazy demand-faults pages as the forward pass touches
	// them (MADV_SEQUENTIAL).
	StrategyLazy LoadStrategy = iota
	// StrategyEager prefaults all pages up front (MADV_WILLNEED).
	StrategyEager
)

type loadOptions struct {
	strategy LoadStrategy
}

// LoadOption configures LoadModel, following the same closure-option
// pattern as ForwardOption (options.go).
type LoadOption func(*loadOptions)

// WithLoadStrategy selects the eager/lazy mmap strategy.
func WithLoadStrategy(s LoadStrategy) LoadOption {
	return func(o *loadOptions) { o.strategy = s }
}

// ModelFile is an opened, memory-mapped, validated weight file: the
// immutable tier of the engine's three-tier memory discipline.
type ModelFile struct {
	mmap   *osx.MmapFile
	Header Header
	Path   string
}

// LoadModel opens path read-only, memory-maps it, validates its size
// and header, and applies the requested page-fault strategy.
func LoadModel(path string, opts ...LoadOption) (*ModelFile, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	mf, err := osx.OpenMmapFile(path)
	if err != nil {
		return nil, wrapf(ErrFileOpen, "%s: %v", path, err)
	}
	if mf.Len() < headerSize {
		osx.Close(mf)
		return nil, wrapf(ErrFileTooSmall, "%s: %d bytes", path, mf.Len())
	}

	header, err := parseHeader(mf.Bytes())
	if err != nil {
		osx.Close(mf)
		return nil, err
	}
	if err := header.Validate(); err != nil {
		osx.Close(mf)
		return nil, err
	}

	strategy := o.strategy
	advice := osx.MadviseSequential
	if strategy == StrategyEager {
		advice = osx.MadviseWillNeed
	}
	if err := osx.Madvise(mf.Bytes(), advice); err != nil {
		osx.Close(mf)
		return nil, wrapf(ErrMmapFailed, "madvise %s: %v", path, err)
	}

	return &ModelFile{mmap: mf, Header: header, Path: path}, nil
}

// Bytes returns the whole mmapped file, header included.
func (m *ModelFile) Bytes() []byte { return m.mmap.Bytes() }

// Close releases the mmap.
func (m *ModelFile) Close() error {
	if m == nil || m.mmap == nil {
		return nil
	}
	return m.mmap.Close()
}


// String renders the header fields for the CLI and trace dumps.
func (h Header) String() string {
	return fmt.Sprintf("Header{vocab=%d dim=%d hidden=%d layers=%d heads=%d kv_heads=%d max_seq=%d rope_base=%.1f}",
		h.VocabSize, h.Dim, h.HiddenDim, h.NLayers, h.NHeads, h.NKVHeads, h.MaxSeqLen, h.RopeFreqBase)
}
