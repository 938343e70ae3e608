package qorus

import "fmt"

// DType is the element type of a Tensor, a lookup-table enum (see
// _dtypeTraits) trimmed to the two element types this engine uses:
// dense f32 and block-quantized Q4_0.
type DType uint32

// DType constants.
const (
	DTypeF32 DType = iota
	DTypeQ4_0
	_dtypeCount
)

// DTypeTrait holds the trait of a DType: how many logical elements
// make up one quantization block, and how many bytes that block
// occupies on disk/in the arena.
type DTypeTrait struct {
	BlockSize  uint64 // elements per block; 1 for dense types
	BlockBytes uint64 // bytes per block
	Quantized  bool
}

var _dtypeTraits = [...]DTypeTrait{
	DTypeF32:  {BlockSize: 1, BlockBytes: 4},
	DTypeQ4_0: {BlockSize: 32, BlockBytes: 20, Quantized: true}, // 4-byte f32 scale + 16 bytes of nibbles
}

// Trait returns the DTypeTrait of the DType.
func (t DType) Trait() (DTypeTrait, bool) {
	if t >= _dtypeCount {
		return DTypeTrait{}, false
	}
	return _dtypeTraits[t], true
}

// IsQuantized returns whether the DType is block-quantized.
func (t DType) IsQuantized() bool {
	tt, ok := t.Trait()
	return ok && tt.Quantized
}

func (t DType) String() string {
	switch t {
	case DTypeF32:
		return "F32"
	case DTypeQ4_0:
		return "Q4_0"
	default:
		return "Unknown"
	}
}

// RowSize returns the byte size of one row of cols logical elements of
// this DType: F32 rows are cols*4 bytes, Q4_0 rows are (cols/32)*20
// bytes.
func (t DType) RowSize(cols uint64) (uint64, error) {
	tt, ok := t.Trait()
	if !ok {
		return 0, wrapf(ErrInvalidDtype, "dtype %d", t)
	}
	if cols%tt.BlockSize != 0 {
		return 0, wrapf(ErrInvalidSize, "%s requires cols %% %d == 0, got %d", t, tt.BlockSize, cols)
	}
	blocks := cols / tt.BlockSize
	rowSize, overflow := checkedMul(blocks, tt.BlockBytes)
	if overflow {
		return 0, wrapf(ErrOverflow, "row size of %d %s cols", cols, t)
	}
	return rowSize, nil
}

// alignUp64 rounds n up to the next multiple of 64, the engine's
// standing alignment invariant. ok is false on uint64 overflow.
func alignUp64(n uint64) (_ uint64, ok bool) {
	const align = 64
	if n > ^uint64(0)-(align-1) {
		return 0, false
	}
	return (n + align - 1) &^ (align - 1), true
}

// checkedMul multiplies a and b, reporting overflow instead of
// silently wrapping.
func checkedMul(a, b uint64) (_ uint64, overflow bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	p := a * b
	if p/a != b {
		return 0, true
	}
	return p, false
}

func fmtShape(ne [4]uint64) string {
	return fmt.Sprintf("[%d,%d,%d,%d]", ne[0], ne[1], ne[2], ne[3])
}
