package qorus

import "math"

// RoPEFreqs precomputes the per-channel inverse frequency table for
// a head of headDim channels, theta_i = freqBase^(-2i/headDim) for
// pair i in [0, headDim/2). This is model-wide and position-
// independent, so the graph builder computes it once into the
// arena's base region, which persists across every subsequent Reset.
func RoPEFreqs(headDim int, freqBase float32) []float32 {
	half := headDim / 2
	freqs := make([]float32, half)
	for i := 0; i < half; i++ {
		exponent := float64(2*i) / float64(headDim)
		freqs[i] = float32(1 / math.Pow(float64(freqBase), exponent))
	}
	return freqs
}

// RoPETable builds the duplicated cos/sin tables for one absolute
// position: lane 2i and lane 2i+1 of the cos/sin buffer both hold the
// same value for pair i. cosTab/sinTab must each have length ==
// 2*len(freqs).
func RoPETable(freqs []float32, position int, cosTab, sinTab []float32) {
	debugAssert(len(cosTab) == 2*len(freqs) && len(sinTab) == 2*len(freqs), "RoPE table length mismatch")
	for i, f := range freqs {
		angle := float64(position) * float64(f)
		c := float32(math.Cos(angle))
		s := float32(math.Sin(angle))
		cosTab[2*i] = c
		cosTab[2*i+1] = c
		sinTab[2*i] = s
		sinTab[2*i+1] = s
	}
}

// ApplyRoPE rotates consecutive channel pairs of x in place using the
// duplicated cos/sin tables built by RoPETable:
// x' = x*cos - swap(x)*sin, where swap(x) is the odd/even-lane
// permutation of x and the alternating sign is folded into an
// add-subtract over the duplicated layout.
func ApplyRoPE(x, cosTab, sinTab []float32) error {
	n := len(x)
	if n%2 != 0 {
		return wrapf(ErrInvalidSize, "RoPE: length %d must be even", n)
	}
	if len(cosTab) != n || len(sinTab) != n {
		return wrapf(ErrInvalidSize, "RoPE: table length %d != vector length %d", len(cosTab), n)
	}
	if debugRoPEDuplicationBroken(cosTab) || debugRoPEDuplicationBroken(sinTab) {
		return wrapf(ErrInvalidArg, "RoPE: cos/sin table is not duplicated")
	}
	for i := 0; i < n; i += 2 {
		x0, x1 := x[i], x[i+1]
		c, s := cosTab[i], sinTab[i] // cosTab[i]==cosTab[i+1], sinTab[i]==sinTab[i+1]
		x[i] = x0*c - x1*s
		x[i+1] = x1*c + x0*s
	}
	return nil
}

// debugRoPEDuplicationBroken cheaply checks the producer/consumer
// duplication contract between RoPETable and ApplyRoPE. It is always
// evaluated (not gated by qorus_debug) because the check is O(n) and
// the contract is easy to violate from hand-built tables in tests;
// debugAssert is reserved for genuinely hot invariants.
func debugRoPEDuplicationBroken(tab []float32) bool {
	for i := 0; i+1 < len(tab); i += 2 {
		if tab[i] != tab[i+1] {
			return true
		}
	}
	return false
}
