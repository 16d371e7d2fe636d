package vm

// ---------------------------------------------------------------------------
// ObjUpvalue: captured-variable cells
// ---------------------------------------------------------------------------

// ObjUpvalue is the indirection cell that lets a stack-allocated variable be
// shared between a call frame and the closures that captured it.
//
// While open, the cell points at a live slot on a ValueStack. When the
// owning frame returns, the cell is closed: the slot's value is copied into
// the cell's own storage and the stack reference dropped. Reads and writes
// always go through the cell, so closures cannot tell the difference.
// A closed cell never reopens.
type ObjUpvalue struct {
	ObjHeader

	// Open state: the stack and slot the cell points into. stack is nil
	// once the cell has been closed.
	stack *ValueStack
	slot  int

	// Closed state: the cell's own copy of the value.
	closed Value
}

// IsOpen reports whether the cell still points into a live stack slot.
func (u *ObjUpvalue) IsOpen() bool { return u.stack != nil }

// Slot returns the stack slot an open cell points at.
// Panics if the cell is closed.
func (u *ObjUpvalue) Slot() int {
	if u.stack == nil {
		panic("ObjUpvalue.Slot: cell is closed")
	}
	return u.slot
}

// Get reads the captured variable through the cell's current location.
func (u *ObjUpvalue) Get() Value {
	if u.stack != nil {
		return u.stack.At(u.slot)
	}
	return u.closed
}

// Set writes the captured variable through the cell's current location.
func (u *ObjUpvalue) Set(v Value) {
	if u.stack != nil {
		u.stack.SetAt(u.slot, v)
		return
	}
	u.closed = v
}

// close copies the live slot value into the cell and drops the stack
// reference. Idempotence is not needed: the heap removes the cell from the
// open list in the same step.
func (u *ObjUpvalue) close() {
	u.closed = u.stack.At(u.slot)
	u.stack = nil
}

// ---------------------------------------------------------------------------
// Open/close protocol
// ---------------------------------------------------------------------------

// OpenUpvalue returns the upvalue cell for the given stack slot, reusing an
// existing open cell if one already points there. Closures that capture the
// same variable must share one cell, not duplicate it.
//
// The open list is kept ordered innermost (highest slot) first, matching
// the order frames unwind in.
func (h *Heap) OpenUpvalue(stack *ValueStack, slot int) *ObjUpvalue {
	if slot < 0 || slot >= stack.Len() {
		panic("Heap.OpenUpvalue: slot is not a live stack slot")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Walk past cells over deeper slots; stop at or below the target.
	i := 0
	for i < len(h.openUpvalues) {
		u := h.openUpvalues[i]
		if u.stack == stack && u.slot == slot {
			return u
		}
		if u.stack == stack && u.slot < slot {
			break
		}
		i++
	}

	u := &ObjUpvalue{stack: stack, slot: slot, closed: Nil}
	h.registerLocked(u, TypeUpvalue, sizeObjUpvalue)

	h.openUpvalues = append(h.openUpvalues, nil)
	copy(h.openUpvalues[i+1:], h.openUpvalues[i:])
	h.openUpvalues[i] = u
	return u
}

// CloseUpvalues closes every open cell pointing at slot from or above on
// the given stack. Called when the frame owning those slots returns, before
// the slots are discarded. Each affected cell copies the live value into
// its own storage; closures sharing the cell keep observing that value and
// any later writes through it.
func (h *Heap) CloseUpvalues(stack *ValueStack, from int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.openUpvalues[:0]
	for _, u := range h.openUpvalues {
		if u.stack == stack && u.slot >= from {
			u.close()
			continue
		}
		kept = append(kept, u)
	}
	// Zero the tail so closed cells aren't pinned by the backing array.
	for i := len(kept); i < len(h.openUpvalues); i++ {
		h.openUpvalues[i] = nil
	}
	h.openUpvalues = kept
}

// OpenUpvalueCount returns the number of currently open cells.
func (h *Heap) OpenUpvalueCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.openUpvalues)
}
