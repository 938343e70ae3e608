//go:build qorus_debug

package qorus

// debugAssert aborts the process when cond is false. Gated behind the
// qorus_debug build tag so invariant violations abort immediately in
// debug builds without costing anything in release builds.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("qorus: invariant violation: " + msg)
	}
}

// debugPoison fills reclaimed arena memory with a recognizable pattern
// so a use-after-reset shows up as garbage instead of stale zeros.
func debugPoison(b []byte) {
	const poison = 0xCD
	for i := range b {
		b[i] = poison
	}
}
