package vm

// ---------------------------------------------------------------------------
// ObjClass
// ---------------------------------------------------------------------------

// ObjClass is a named type descriptor holding a method table. The model is
// deliberately flat: no superclass link, no resolution order. Method values
// are closures; attaching anything else is the compiler's mistake, caught
// at call time, not here.
type ObjClass struct {
	ObjHeader
	name    *ObjString
	methods Table
}

// NewClass registers a class with an empty method table.
func (h *Heap) NewClass(name *ObjString) *ObjClass {
	if name == nil {
		panic("Heap.NewClass: nil name")
	}
	c := &ObjClass{name: name}
	h.register(c, TypeClass, sizeObjClass)
	return c
}

// Name returns the class name.
func (c *ObjClass) Name() *ObjString { return c.name }

// DefineMethod attaches a method value under the given name, replacing any
// previous definition.
func (c *ObjClass) DefineMethod(name *ObjString, method Value) {
	c.methods.Set(name, method)
}

// Method returns the method stored under name, if any.
func (c *ObjClass) Method(name *ObjString) (Value, bool) {
	return c.methods.Get(name)
}

// Methods returns the class's method table.
func (c *ObjClass) Methods() *Table { return &c.methods }

// ---------------------------------------------------------------------------
// ObjInstance
// ---------------------------------------------------------------------------

// ObjInstance pairs a class reference with a per-object field table,
// populated lazily on first assignment. The class's method table is not
// consulted or copied at construction; method resolution happens at call
// time in the interpreter.
type ObjInstance struct {
	ObjHeader
	class  *ObjClass
	fields Table
}

// NewInstance registers an instance of the given class with no fields.
func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	if class == nil {
		panic("Heap.NewInstance: nil class")
	}
	i := &ObjInstance{class: class}
	h.register(i, TypeInstance, sizeObjInstance)
	return i
}

// Class returns the instance's class.
func (i *ObjInstance) Class() *ObjClass { return i.class }

// Field returns the field stored under name, if any.
func (i *ObjInstance) Field(name *ObjString) (Value, bool) {
	return i.fields.Get(name)
}

// SetField stores a field value, creating the field on first assignment.
func (i *ObjInstance) SetField(name *ObjString, v Value) {
	i.fields.Set(name, v)
}

// Fields returns the instance's field table.
func (i *ObjInstance) Fields() *Table { return &i.fields }

// ---------------------------------------------------------------------------
// ObjBoundMethod
// ---------------------------------------------------------------------------

// ObjBoundMethod pairs a receiver with a method closure, produced when a
// method is read off an instance outside an immediate call. Immutable after
// creation. Whether the closure really is a method of the receiver's class
// is the caller's problem.
type ObjBoundMethod struct {
	ObjHeader
	receiver Value
	method   *ObjClosure
}

// NewBoundMethod registers a bound method pairing receiver and method.
func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	if method == nil {
		panic("Heap.NewBoundMethod: nil method")
	}
	b := &ObjBoundMethod{receiver: receiver, method: method}
	h.register(b, TypeBoundMethod, sizeObjBoundMethod)
	return b
}

// Receiver returns the pre-attached receiver value.
func (b *ObjBoundMethod) Receiver() Value { return b.receiver }

// Method returns the bound closure.
func (b *ObjBoundMethod) Method() *ObjClosure { return b.method }
