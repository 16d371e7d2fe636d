package vm

// ---------------------------------------------------------------------------
// ObjFunction: compiled function bodies
// ---------------------------------------------------------------------------

// ObjFunction is a compiled function: its chunk, an optional name, its
// arity, and the number of upvalue cells any closure wrapping it must
// supply. Immutable once compilation has finished.
type ObjFunction struct {
	ObjHeader
	name         *ObjString // nil for top-level/anonymous code
	arity        int
	upvalueCount int
	chunk        *Chunk
}

// NewFunction registers a compiled function on the heap. name may be nil
// for top-level or anonymous code; chunk may not.
func (h *Heap) NewFunction(name *ObjString, arity, upvalueCount int, chunk *Chunk) *ObjFunction {
	if chunk == nil {
		panic("Heap.NewFunction: nil chunk")
	}
	if arity < 0 || upvalueCount < 0 {
		panic("Heap.NewFunction: negative arity or upvalue count")
	}
	f := &ObjFunction{
		name:         name,
		arity:        arity,
		upvalueCount: upvalueCount,
		chunk:        chunk,
	}
	h.register(f, TypeFunction, sizeObjFunction+chunk.size())
	return f
}

// Name returns the function's name, or nil for anonymous/top-level code.
func (f *ObjFunction) Name() *ObjString { return f.name }

// Arity returns the declared parameter count.
func (f *ObjFunction) Arity() int { return f.arity }

// UpvalueCount returns the number of capture slots closures over this
// function carry.
func (f *ObjFunction) UpvalueCount() int { return f.upvalueCount }

// Chunk returns the compiled body.
func (f *ObjFunction) Chunk() *Chunk { return f.chunk }

// ---------------------------------------------------------------------------
// ObjClosure: a function plus its captured cells
// ---------------------------------------------------------------------------

// ObjClosure pairs a function with the upvalue cells it captured. The
// capture array's length always equals the function's declared upvalue
// count; the interpreter fills the slots immediately after construction,
// either by opening a cell over the current frame or by sharing a cell
// from the enclosing closure.
type ObjClosure struct {
	ObjHeader
	function *ObjFunction
	upvalues []*ObjUpvalue
}

// NewClosure wraps a function in a closure with an empty capture array
// sized to the function's declared upvalue count.
func (h *Heap) NewClosure(fn *ObjFunction) *ObjClosure {
	if fn == nil {
		panic("Heap.NewClosure: nil function")
	}
	c := &ObjClosure{
		function: fn,
		upvalues: make([]*ObjUpvalue, fn.upvalueCount),
	}
	h.register(c, TypeClosure, sizeObjClosure+uint64(fn.upvalueCount)*8)
	return c
}

// NewClosureWithUpvalues wraps a function in a closure capturing the given
// cells. Panics if the cell count does not match the function's declared
// upvalue count; that is a compiler/interpreter bug, not a runtime fault.
func (h *Heap) NewClosureWithUpvalues(fn *ObjFunction, upvalues []*ObjUpvalue) *ObjClosure {
	if fn == nil {
		panic("Heap.NewClosureWithUpvalues: nil function")
	}
	if len(upvalues) != fn.upvalueCount {
		panic("Heap.NewClosureWithUpvalues: upvalue count mismatch")
	}
	c := &ObjClosure{
		function: fn,
		upvalues: append([]*ObjUpvalue(nil), upvalues...),
	}
	h.register(c, TypeClosure, sizeObjClosure+uint64(fn.upvalueCount)*8)
	return c
}

// Function returns the wrapped function.
func (c *ObjClosure) Function() *ObjFunction { return c.function }

// UpvalueCount returns the capture array's length.
func (c *ObjClosure) UpvalueCount() int { return len(c.upvalues) }

// Upvalue returns the cell in the given capture slot.
// Panics if index is out of range.
func (c *ObjClosure) Upvalue(index int) *ObjUpvalue {
	if index < 0 || index >= len(c.upvalues) {
		panic("ObjClosure.Upvalue: index out of range")
	}
	return c.upvalues[index]
}

// SetUpvalue populates a capture slot. The interpreter calls this right
// after construction; slots are never re-pointed afterwards.
func (c *ObjClosure) SetUpvalue(index int, u *ObjUpvalue) {
	if index < 0 || index >= len(c.upvalues) {
		panic("ObjClosure.SetUpvalue: index out of range")
	}
	c.upvalues[index] = u
}

// GetCaptured reads the captured variable in the given slot through its cell.
func (c *ObjClosure) GetCaptured(index int) Value {
	return c.Upvalue(index).Get()
}

// SetCaptured writes the captured variable in the given slot through its cell.
func (c *ObjClosure) SetCaptured(index int, v Value) {
	c.Upvalue(index).Set(v)
}

// ---------------------------------------------------------------------------
// ObjNative: host function wrappers
// ---------------------------------------------------------------------------

// NativeFn is the fixed calling convention for host functions: an argument
// count, the argument slice, one return value. The args slice aliases the
// caller's stack and must not be retained.
type NativeFn func(argCount int, args []Value) Value

// ObjNative adapts a host function to the uniform callable object shape.
// Stateless beyond the function itself.
type ObjNative struct {
	ObjHeader
	function NativeFn
}

// NewNative registers a host function wrapper on the heap.
func (h *Heap) NewNative(fn NativeFn) *ObjNative {
	if fn == nil {
		panic("Heap.NewNative: nil function")
	}
	n := &ObjNative{function: fn}
	h.register(n, TypeNative, sizeObjNative)
	return n
}

// Call invokes the wrapped host function.
func (n *ObjNative) Call(args []Value) Value {
	return n.function(len(args), args)
}
