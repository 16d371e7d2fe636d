package vm

// ---------------------------------------------------------------------------
// Heap object variants
// ---------------------------------------------------------------------------

// ObjType identifies a heap object variant. The tag is assigned at
// construction and never changes for the lifetime of the object.
type ObjType uint8

const (
	TypeString ObjType = iota
	TypeFunction
	TypeNative
	TypeClosure
	TypeUpvalue
	TypeClass
	TypeInstance
	TypeBoundMethod
)

// String returns a human-readable name for the type tag.
func (t ObjType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeNative:
		return "native"
	case TypeClosure:
		return "closure"
	case TypeUpvalue:
		return "upvalue"
	case TypeClass:
		return "class"
	case TypeInstance:
		return "instance"
	case TypeBoundMethod:
		return "bound method"
	default:
		return "?"
	}
}

// Obj is the closed set of heap object variants. Every variant embeds
// ObjHeader as its first field; variant-specific fields are reached through
// a tag-checked accessor (the Heap's As* methods), never by reinterpreting
// one variant as another.
type Obj interface {
	Header() *ObjHeader
}

// ObjHeader is the common header shared by every heap object variant:
// the type tag, the collector's mark bit, and the object's own handle in
// the heap arena. Constructors fill it in as their final step, before the
// object becomes reachable from any root.
type ObjHeader struct {
	typ    ObjType
	marked bool
	handle Handle
}

// Header returns the object's common header.
func (h *ObjHeader) Header() *ObjHeader { return h }

// Type returns the object's type tag.
func (h *ObjHeader) Type() ObjType { return h.typ }

// Handle returns the object's arena handle.
func (h *ObjHeader) Handle() Handle { return h.handle }

// Value returns the object boxed as a Value.
func (h *ObjHeader) Value() Value { return FromHandle(h.handle) }

// Marked reports the collector's mark bit. Only the collector sets and
// clears it; constructors initialize it to unmarked.
func (h *ObjHeader) Marked() bool { return h.marked }

// SetMarked sets or clears the mark bit. Reserved for the collector.
func (h *ObjHeader) SetMarked(m bool) { h.marked = m }

// ---------------------------------------------------------------------------
// Tag-checked accessors
// ---------------------------------------------------------------------------

// Object resolves a Value to the heap object it refers to.
// Returns nil if v is not an object value or its handle is stale.
func (h *Heap) Object(v Value) Obj {
	if !v.IsObject() {
		return nil
	}
	return h.lookup(v.ObjectHandle())
}

// MustObject resolves a Value to a live heap object.
// Panics if v is not an object or the handle is stale.
func (h *Heap) MustObject(v Value) Obj {
	o := h.Object(v)
	if o == nil {
		panic("Heap.MustObject: not a live object")
	}
	return o
}

// Is reports whether v refers to a live object with the given type tag.
func (h *Heap) Is(v Value, t ObjType) bool {
	o := h.Object(v)
	return o != nil && o.Header().typ == t
}

// AsString returns v as an *ObjString. Panics on tag mismatch.
func (h *Heap) AsString(v Value) *ObjString {
	s, ok := h.MustObject(v).(*ObjString)
	if !ok {
		panic("Heap.AsString: not a string")
	}
	return s
}

// AsFunction returns v as an *ObjFunction. Panics on tag mismatch.
func (h *Heap) AsFunction(v Value) *ObjFunction {
	f, ok := h.MustObject(v).(*ObjFunction)
	if !ok {
		panic("Heap.AsFunction: not a function")
	}
	return f
}

// AsNative returns v as an *ObjNative. Panics on tag mismatch.
func (h *Heap) AsNative(v Value) *ObjNative {
	n, ok := h.MustObject(v).(*ObjNative)
	if !ok {
		panic("Heap.AsNative: not a native function")
	}
	return n
}

// AsClosure returns v as an *ObjClosure. Panics on tag mismatch.
func (h *Heap) AsClosure(v Value) *ObjClosure {
	c, ok := h.MustObject(v).(*ObjClosure)
	if !ok {
		panic("Heap.AsClosure: not a closure")
	}
	return c
}

// AsUpvalue returns v as an *ObjUpvalue. Panics on tag mismatch.
func (h *Heap) AsUpvalue(v Value) *ObjUpvalue {
	u, ok := h.MustObject(v).(*ObjUpvalue)
	if !ok {
		panic("Heap.AsUpvalue: not an upvalue")
	}
	return u
}

// AsClass returns v as an *ObjClass. Panics on tag mismatch.
func (h *Heap) AsClass(v Value) *ObjClass {
	c, ok := h.MustObject(v).(*ObjClass)
	if !ok {
		panic("Heap.AsClass: not a class")
	}
	return c
}

// AsInstance returns v as an *ObjInstance. Panics on tag mismatch.
func (h *Heap) AsInstance(v Value) *ObjInstance {
	i, ok := h.MustObject(v).(*ObjInstance)
	if !ok {
		panic("Heap.AsInstance: not an instance")
	}
	return i
}

// AsBoundMethod returns v as an *ObjBoundMethod. Panics on tag mismatch.
func (h *Heap) AsBoundMethod(v Value) *ObjBoundMethod {
	b, ok := h.MustObject(v).(*ObjBoundMethod)
	if !ok {
		panic("Heap.AsBoundMethod: not a bound method")
	}
	return b
}
