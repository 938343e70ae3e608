package qorus

// Tensor is a passive, typed, strided view into a backing byte region,
// the mmapped weight file or an Arena buffer. It owns no storage;
// Go's slice already encodes that Data borrows its backing array, so
// a Tensor's lifetime is only ever as long as whatever Data aliases:
// every view's lifetime is tied to its backing region.
type Tensor struct {
	Data  []byte   // sub-slice of the mmap region or an arena buffer
	DType DType
	NE    [4]uint64 // logical shape, NE[0] outermost (row-major)
	NB    [4]uint64 // byte strides
	Name  string
}

// NewTensorView constructs a Tensor over backing[offset:], checking
// that the offset lies inside the backing region, the declared size
// is computable without overflow, the resulting byte range does not
// exceed the backing region, and the strides are then derived from
// the shape.
func NewTensorView(backing []byte, offset uint64, dtype DType, name string, ne [4]uint64) (Tensor, error) {
	var t Tensor // zero-initialized before population

	if offset > uint64(len(backing)) {
		return t, wrapf(ErrInvalidArg, "tensor %q offset %d exceeds backing region of %d bytes", name, offset, len(backing))
	}
	if ne[0] == 0 {
		return t, wrapf(ErrInvalidSize, "tensor %q has zero extent in dim 0", name)
	}

	size, nb, err := tensorSizeAndStrides(dtype, ne)
	if err != nil {
		return t, wrapf(ErrInvalidSize, "tensor %q: %v", name, err)
	}

	end, overflow := checkedAdd(offset, size)
	if overflow || end > uint64(len(backing)) {
		return t, wrapf(ErrInvalidSize, "tensor %q shape %s needs %d bytes at offset %d, backing region is %d bytes",
			name, fmtShape(ne), size, offset, len(backing))
	}

	t.Data = backing[offset:end:end]
	t.DType = dtype
	t.NE = ne
	t.NB = nb
	t.Name = name
	return t, nil
}

// tensorSizeAndStrides computes the total declared byte size of shape
// ne under dtype, and its byte strides.
func tensorSizeAndStrides(dtype DType, ne [4]uint64) (size uint64, nb [4]uint64, err error) {
	switch dtype {
	case DTypeF32:
		for i := 1; i < 4; i++ {
			if ne[i] == 0 {
				ne[i] = 1
			}
		}
		nb[3] = 4
		var overflow bool
		nb[2], overflow = checkedMul(ne[3], nb[3])
		if overflow {
			return 0, nb, ErrOverflow
		}
		nb[1], overflow = checkedMul(ne[2], nb[2])
		if overflow {
			return 0, nb, ErrOverflow
		}
		nb[0], overflow = checkedMul(ne[1], nb[1])
		if overflow {
			return 0, nb, ErrOverflow
		}
		size, overflow = checkedMul(ne[0], nb[0])
		if overflow {
			return 0, nb, ErrOverflow
		}
		return size, nb, nil

	case DTypeQ4_0:
		if ne[1] == 0 {
			ne[1] = 1
		}
		if ne[2] == 0 {
			ne[2] = 1
		}
		if ne[3] == 0 {
			ne[3] = 1
		}
		rowSize, err := dtype.RowSize(ne[1])
		if err != nil {
			return 0, nb, err
		}
		// nb[1..3] are left symbolic: kernels only ever consult NB[0]
		// for Q4_0 tensors.
		nb[0] = rowSize
		nb[1] = dtype.mustTrait().BlockBytes
		nb[2] = nb[1] * (ne[1] / dtype.mustTrait().BlockSize)
		nb[3] = nb[2]
		size, overflow := checkedMul(ne[0], rowSize)
		if overflow {
			return 0, nb, ErrOverflow
		}
		for _, extra := range []uint64{ne[2], ne[3]} {
			if extra > 1 {
				size, overflow = checkedMul(size, extra)
				if overflow {
					return 0, nb, ErrOverflow
				}
			}
		}
		return size, nb, nil

	default:
		return 0, nb, ErrInvalidDtype
	}
}

func (t DType) mustTrait() DTypeTrait {
	tt, _ := t.Trait()
	return tt
}

func checkedAdd(a, b uint64) (_ uint64, overflow bool) {
	s := a + b
	return s, s < a
}

// Rows returns NE[0], the number of rows of a 2-D tensor.
func (t Tensor) Rows() uint64 { return t.NE[0] }

// Cols returns NE[1], the number of columns of a 2-D tensor.
func (t Tensor) Cols() uint64 { return t.NE[1] }

// F32 reinterprets Data as a []float32. Caller must have already
// verified t.DType == DTypeF32.
func (t Tensor) F32() []float32 {
	return bytesToF32(t.Data)
}
