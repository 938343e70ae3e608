package qorus

import "github.com/qorus-infer/qorus/util/json"

// headerJSON is the JSON-friendly projection of Header, exposing the
// derived head_dim/kv_dim fields alongside the on-disk ones.
type headerJSON struct {
	Version      uint32  `json:"version"`
	VocabSize    uint32  `json:"vocab_size"`
	Dim          uint32  `json:"dim"`
	HiddenDim    uint32  `json:"hidden_dim"`
	NLayers      uint32  `json:"n_layers"`
	NHeads       uint32  `json:"n_heads"`
	NKVHeads     uint32  `json:"n_kv_heads"`
	MaxSeqLen    uint32  `json:"max_seq_len"`
	RopeFreqBase float32 `json:"rope_freq_base"`
	HeadDim      uint32  `json:"head_dim"`
	KVDim        uint32  `json:"kv_dim"`
}

// MarshalJSON renders the header's config fields, including the
// derived head_dim/kv_dim, through util/json (a jsoniter-backed,
// build-tag swappable encoding/json replacement).
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{
		Version:      h.Version,
		VocabSize:    h.VocabSize,
		Dim:          h.Dim,
		HiddenDim:    h.HiddenDim,
		NLayers:      h.NLayers,
		NHeads:       h.NHeads,
		NKVHeads:     h.NKVHeads,
		MaxSeqLen:    h.MaxSeqLen,
		RopeFreqBase: h.RopeFreqBase,
		HeadDim:      h.HeadDim(),
		KVDim:        h.KVDim(),
	})
}
