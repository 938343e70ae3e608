package qorus

import "math"

// RMSNorm computes y[i] = (x[i] / sqrt(mean(x^2) + eps)) * w[i].
// x, w, y must be equal length, a multiple of 8, and 32-byte aligned.
func RMSNorm(x, w, y []float32, eps float32) error {
	n := len(x)
	if n != len(w) || n != len(y) {
		return wrapf(ErrInvalidSize, "RMSNorm: length mismatch x=%d w=%d y=%d", n, len(w), n)
	}
	if n%8 != 0 {
		return wrapf(ErrInvalidSize, "RMSNorm: length %d must be a multiple of 8", n)
	}
	if !alignedF32(x) || !alignedF32(w) || !alignedF32(y) {
		return wrapf(ErrMisaligned, "RMSNorm: operands must be 32-byte aligned")
	}

	var sumSq float32
	for i := 0; i < n; i += 8 {
		sumSq += x[i+0]*x[i+0] + x[i+1]*x[i+1] + x[i+2]*x[i+2] + x[i+3]*x[i+3] +
			x[i+4]*x[i+4] + x[i+5]*x[i+5] + x[i+6]*x[i+6] + x[i+7]*x[i+7]
	}
	meanSq := sumSq/float32(n) + eps

	// Initial rsqrt guess from math.Sqrt, refined by one
	// Newton-Raphson step: r <- r*(3 - s*r^2)/2.
	r := float32(1 / math.Sqrt(float64(meanSq)))
	r = r * (3 - meanSq*r*r) / 2

	for i := 0; i < n; i++ {
		y[i] = x[i] * r * w[i]
	}
	return nil
}
