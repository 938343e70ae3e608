//go:build !qorus_debug

package qorus

// debugAssert is a no-op outside the qorus_debug build tag. Release
// builds never abort on an invariant violation; they have already
// returned a typed error by the time an invariant would be checked.
func debugAssert(bool, string) {}

// debugPoison is a no-op outside the qorus_debug build tag.
func debugPoison([]byte) {}
