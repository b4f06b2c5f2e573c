package pool

import "unsafe"

// sliceAddr returns the numeric address of b's backing array, used only to
// compute the padding needed to round up to Alignment. This is the one
// unsafe fast path in the package (spec §4.1 "unsafe fast paths exist that
// skip bounds checks"); it never aliases or mutates memory.
func sliceAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
