package qorus

// AddF32 computes out[i] = a[i] + b[i] for equal-length, contiguous,
// 32-byte-aligned 1-D f32 vectors. out may alias a or b (reads happen
// before the write of the same iteration).
func AddF32(a, b, out []float32) error {
	return elementwiseF32(a, b, out, func(x, y float32) float32 { return x + y })
}

// MulF32 computes out[i] = a[i] * b[i].
func MulF32(a, b, out []float32) error {
	return elementwiseF32(a, b, out, func(x, y float32) float32 { return x * y })
}

func elementwiseF32(a, b, out []float32, op func(x, y float32) float32) error {
	if len(a) != len(b) || len(a) != len(out) {
		return wrapf(ErrInvalidSize, "elementwise: length mismatch a=%d b=%d out=%d", len(a), len(b), len(out))
	}
	if !alignedF32(a) || !alignedF32(b) || !alignedF32(out) {
		return wrapf(ErrMisaligned, "elementwise: operands must be 32-byte aligned")
	}
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		out[i+0] = op(a[i+0], b[i+0])
		out[i+1] = op(a[i+1], b[i+1])
		out[i+2] = op(a[i+2], b[i+2])
		out[i+3] = op(a[i+3], b[i+3])
		out[i+4] = op(a[i+4], b[i+4])
		out[i+5] = op(a[i+5], b[i+5])
		out[i+6] = op(a[i+6], b[i+6])
		out[i+7] = op(a[i+7], b[i+7])
	}
	for ; i < n; i++ {
		out[i] = op(a[i], b[i])
	}
	return nil
}

func alignedF32(s []float32) bool {
	if len(s) == 0 {
		return true
	}
	b := unsafeF32Bytes(s)
	return alignedTo(b, 32)
}
