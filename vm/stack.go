package vm

// ---------------------------------------------------------------------------
// ValueStack: the interpreter's operand/frame stack
// ---------------------------------------------------------------------------

// ValueStack is the mutable value stack a call frame's locals live on.
// The object model does not own the stack; it only needs a stable reference
// to it so open upvalues can read and write live slots. It is also a GC
// root: everything on it is reachable.
type ValueStack struct {
	values []Value
}

// NewValueStack creates an empty stack.
func NewValueStack() *ValueStack {
	return &ValueStack{values: make([]Value, 0, 64)}
}

// Push appends a value and returns its slot index.
func (s *ValueStack) Push(v Value) int {
	s.values = append(s.values, v)
	return len(s.values) - 1
}

// Pop removes and returns the top value.
// Panics if the stack is empty.
func (s *ValueStack) Pop() Value {
	n := len(s.values)
	if n == 0 {
		panic("ValueStack.Pop: empty stack")
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v
}

// Peek returns the value distance slots down from the top.
// Panics if distance is out of range.
func (s *ValueStack) Peek(distance int) Value {
	if distance < 0 || distance >= len(s.values) {
		panic("ValueStack.Peek: distance out of range")
	}
	return s.values[len(s.values)-1-distance]
}

// At returns the value in the given slot.
// Panics if slot is out of range.
func (s *ValueStack) At(slot int) Value {
	if slot < 0 || slot >= len(s.values) {
		panic("ValueStack.At: slot out of range")
	}
	return s.values[slot]
}

// SetAt stores a value into the given slot.
// Panics if slot is out of range.
func (s *ValueStack) SetAt(slot int, v Value) {
	if slot < 0 || slot >= len(s.values) {
		panic("ValueStack.SetAt: slot out of range")
	}
	s.values[slot] = v
}

// Len returns the number of live slots.
func (s *ValueStack) Len() int { return len(s.values) }

// Truncate discards every slot at or above n. The caller is responsible for
// closing upvalues over the discarded slots first (Heap.CloseUpvalues).
func (s *ValueStack) Truncate(n int) {
	if n < 0 || n > len(s.values) {
		panic("ValueStack.Truncate: length out of range")
	}
	s.values = s.values[:n]
}

// ForEach calls fn for every live slot, bottom first.
func (s *ValueStack) ForEach(fn func(Value)) {
	for _, v := range s.values {
		fn(v)
	}
}
