package qorus

import "math"

// Softmax computes a numerically stable softmax of x into y (may
// alias x) in three passes: max reduction, exp+accumulate, divide.
// N < 8 uses an exact scalar math.Exp path; N >= 8 uses the shared
// polynomial expApprox.
func Softmax(x, y []float32) error {
	n := len(x)
	if n != len(y) {
		return wrapf(ErrInvalidSize, "Softmax: length mismatch x=%d y=%d", n, len(y))
	}
	if n == 0 {
		return wrapf(ErrInvalidSize, "Softmax: length must be > 0")
	}

	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}

	var sum float32
	if n < 8 {
		for i, v := range x {
			e := float32(math.Exp(float64(v - max)))
			y[i] = e
			sum += e
		}
	} else {
		for i, v := range x {
			e := expApprox(v - max)
			y[i] = e
			sum += e
		}
	}

	inv := 1 / sum
	for i := range y {
		y[i] *= inv
	}
	return nil
}
