// Package vm implements the Tarn runtime heap: the object model for every
// garbage-collected value that doesn't fit in an inline scalar slot.
//
// Values are NaN-boxed 64-bit words; heap objects live in an arena owned by
// a Heap and are addressed through generation-checked handles. The variants
// are interned strings, compiled functions, closures with captured upvalue
// cells, classes, instances, bound methods, and native-function wrappers.
//
// The package also carries the collaborators a working heap needs: the
// chunk format functions are compiled into, a mark/sweep Collector driven
// through the hooks each object exposes, a portable image format for
// persisting strings/functions/classes, and a SQLite-backed snapshot store.
package vm
