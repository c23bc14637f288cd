// Package x carries small generic helpers shared across the core
// packages that would otherwise create import cycles if they lived in
// any one of them.
package x

import "unsafe"

// Sizeof returns sizeof(T) the way go-highway's hwy/memory.go computes
// element width for its vector loads (unsafe.Sizeof on a zero value).
func Sizeof[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// AsBytes reinterprets a []T as a []byte without copying, the same
// memory-view trick go-highway's hwy/memory.go uses to move between
// scalar and SIMD-register representations. Only valid for T without
// pointers/interfaces, which holds for every concrete T the algebra
// presets instantiate (numeric kinds, bool, and the flat
// PathWithMultiplicity struct).
func AsBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	elemSize := Sizeof[T]()
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*elemSize)
}

// FromBytes is AsBytes's inverse: it reinterprets b (of length a
// multiple of sizeof(T)) as a []T without copying.
func FromBytes[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	elemSize := Sizeof[T]()
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/elemSize)
}
