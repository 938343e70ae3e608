package qorus

import "math"

// SiLU computes y[i] = x[i] * sigmoid(x[i]) = x[i] / (1 + exp(-x[i])).
// Vectors of length < 8 fall back to a standard scalar expf (here
// math.Exp); longer vectors use the shared range-reduced polynomial
// approximation of expApprox.
func SiLU(x, y []float32) error {
	if len(x) != len(y) {
		return wrapf(ErrInvalidSize, "SiLU: length mismatch x=%d y=%d", len(x), len(y))
	}
	if len(x) < 8 {
		for i, v := range x {
			y[i] = v / float32(1+math.Exp(float64(-v)))
		}
		return nil
	}
	for i, v := range x {
		y[i] = v / (1 + expApprox(-v))
	}
	return nil
}

// expApprox is a range-reduced, degree-5 Horner-form polynomial
// approximation of exp(x): reduce x to x = k*ln2 + r with r confined
// to [-ln2/2, ln2/2], approximate exp(r) with the polynomial, then
// rescale by 2^k. Shared by SiLU and Softmax.
func expApprox(x float32) float32 {
	const (
		hi  = 88.0  // above this, float32 exp overflows
		lo  = -88.0 // below this, result underflows to 0
		ln2 = 0.6931471805599453
	)
	switch {
	case x >= hi:
		return float32(math.Exp(hi))
	case x <= lo:
		return 0
	}

	xf := float64(x)
	k := math.Round(xf / ln2)
	r := xf - k*ln2 // r in [-ln2/2, ln2/2]

	// Horner-form Taylor polynomial for e^r around 0, degree 5.
	const (
		c0 = 1.0
		c1 = 1.0
		c2 = 1.0 / 2
		c3 = 1.0 / 6
		c4 = 1.0 / 24
		c5 = 1.0 / 120
	)
	p := c5
	p = p*r + c4
	p = p*r + c3
	p = p*r + c2
	p = p*r + c1
	p = p*r + c0

	return float32(math.Ldexp(p, int(k)))
}
