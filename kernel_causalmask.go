package qorus

// CausalMask sets scores[i][j] = maskValue for every j > i on a square
// [L, L] row-major matrix. The masked part of each row (columns i+1
// onward) is partitioned into a scalar prefix up to the next
// 8-aligned column, a pure store-only region in 8-wide steps (no
// load/compare, just memset), and a scalar tail. No column is
// compared: every column from i+1 on is written with maskValue and
// columns 0..i are not touched.
func CausalMask(scores []float32, l int, maskValue float32) error {
	if len(scores) != l*l {
		return wrapf(ErrInvalidSize, "CausalMask: scores length %d != L*L for L=%d", len(scores), l)
	}
	if l <= 1 {
		return nil
	}

	for i := 0; i < l; i++ {
		row := scores[i*l : i*l+l]
		firstMasked := i + 1
		if firstMasked >= l {
			continue
		}

		boundary := ((firstMasked + 7) / 8) * 8 // next 8-aligned column
		if boundary > l {
			boundary = l
		}

		j := firstMasked
		// Scalar prefix up to the next 8-aligned column.
		for ; j < boundary; j++ {
			row[j] = maskValue
		}
		// Pure store-only region: every remaining column in this row
		// is masked, so no compare is needed, only a write.
		for ; j+8 <= l; j += 8 {
			row[j+0] = maskValue
			row[j+1] = maskValue
			row[j+2] = maskValue
			row[j+3] = maskValue
			row[j+4] = maskValue
			row[j+5] = maskValue
			row[j+6] = maskValue
			row[j+7] = maskValue
		}
		// Scalar tail.
		for ; j < l; j++ {
			row[j] = maskValue
		}
	}
	return nil
}
