package vm

import "unsafe"

// Per-variant base sizes used for allocation accounting. Variable-length
// payloads (string buffers, capture arrays, chunk code) are added on top by
// the constructors. The figures only pace collection; they are not exact.
const (
	sizeObjString      = uint64(unsafe.Sizeof(ObjString{}))
	sizeObjUpvalue     = uint64(unsafe.Sizeof(ObjUpvalue{}))
	sizeObjFunction    = uint64(unsafe.Sizeof(ObjFunction{}))
	sizeObjClosure     = uint64(unsafe.Sizeof(ObjClosure{}))
	sizeObjNative      = uint64(unsafe.Sizeof(ObjNative{}))
	sizeObjClass       = uint64(unsafe.Sizeof(ObjClass{}))
	sizeObjInstance    = uint64(unsafe.Sizeof(ObjInstance{}))
	sizeObjBoundMethod = uint64(unsafe.Sizeof(ObjBoundMethod{}))
	sizeValue          = uint64(unsafe.Sizeof(Value(0)))
)
