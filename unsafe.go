package qorus

import "unsafe"

// bytesToF32 reinterprets a byte slice as a float32 slice without
// copying. Callers are responsible for verifying dtype and alignment
// before calling this.
func bytesToF32(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

// alignedTo reports whether the backing address of b is aligned to
// align bytes, used by kernels to reject misaligned hot-path buffers
// that require 32-byte alignment.
func alignedTo(b []byte, align uintptr) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%align == 0
}

// unsafeBytesOfF32 reinterprets an entire float32 slice as a byte
// slice without copying, the inverse of bytesToF32. Used to wrap
// arena-backed scratch buffers into a Tensor for kernels that expect
// one.
func unsafeBytesOfF32(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// unsafeF32Bytes reinterprets a float32 slice's backing address as a
// one-byte slice, used only to reuse alignedTo's address
// check against a []float32.
func unsafeF32Bytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), 1)
}

// f32Aliases reports whether two float32 slices overlap in memory.
func f32Aliases(a, b []float32) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(&a[0]))
	aEnd := aStart + uintptr(len(a))*unsafe.Sizeof(a[0])
	bStart := uintptr(unsafe.Pointer(&b[0]))
	bEnd := bStart + uintptr(len(b))*unsafe.Sizeof(b[0])
	return aStart < bEnd && bStart < aEnd
}
