package vm

import "testing"

// ---------------------------------------------------------------------------
// Arena and handles
// ---------------------------------------------------------------------------

func TestHandleResolvesToObject(t *testing.T) {
	h := NewHeap()
	s := h.InternString("alpha")

	hd := s.Header().Handle()
	if hd == InvalidHandle {
		t.Fatal("registered object should not have the invalid handle")
	}
	if got := h.lookup(hd); got != Obj(s) {
		t.Errorf("lookup(%v) = %v, want the interned string", hd, got)
	}
	if h.Object(s.Value()) != Obj(s) {
		t.Error("Object should resolve a boxed handle back to the object")
	}
}

func TestInvalidHandleResolvesToNil(t *testing.T) {
	h := NewHeap()
	if h.lookup(InvalidHandle) != nil {
		t.Error("the invalid handle must never resolve")
	}
	if h.lookup(newHandle(999, 0)) != nil {
		t.Error("an out-of-range index must not resolve")
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	h := NewHeap()
	c := NewCollector(h)

	dead := h.InternString("doomed")
	stale := dead.Header().Handle()

	// No roots: everything is swept.
	c.Collect()

	if h.lookup(stale) != nil {
		t.Fatal("handle to a swept object must be stale")
	}

	// The freed slot is reused with a bumped generation, so the old
	// handle still does not resolve to the new occupant.
	fresh := h.InternString("replacement")
	freshHd := fresh.Header().Handle()
	if freshHd.Index() != stale.Index() {
		t.Fatalf("slot %d not reused (got %d)", stale.Index(), freshHd.Index())
	}
	if freshHd.Generation() != stale.Generation()+1 {
		t.Errorf("generation = %d, want %d", freshHd.Generation(), stale.Generation()+1)
	}
	if h.lookup(stale) != nil {
		t.Error("stale handle must not resolve to the slot's new occupant")
	}
	if h.lookup(freshHd) != Obj(fresh) {
		t.Error("fresh handle must resolve")
	}
}

func TestHandleStableAcrossCollections(t *testing.T) {
	h := NewHeap()
	c := NewCollector(h)

	kept := h.InternString("kept")
	pin := kept.Value()
	c.AddRoots(func(mark func(Value)) { mark(pin) })

	hd := kept.Header().Handle()
	for i := 0; i < 3; i++ {
		c.Collect()
		if h.lookup(hd) != Obj(kept) {
			t.Fatalf("handle went stale after cycle %d despite being rooted", i+1)
		}
	}
}

// ---------------------------------------------------------------------------
// Accounting
// ---------------------------------------------------------------------------

func TestAllocationAccounting(t *testing.T) {
	h := NewHeap()
	if h.LiveObjects() != 0 || h.BytesAllocated() != 0 {
		t.Fatal("fresh heap should be empty")
	}

	h.InternString("a")
	h.InternString("bb")
	if h.LiveObjects() != 2 {
		t.Errorf("LiveObjects() = %d, want 2", h.LiveObjects())
	}
	if h.BytesAllocated() == 0 {
		t.Error("allocation should raise the byte estimate")
	}
}

func TestShouldCollectThreshold(t *testing.T) {
	h := NewHeapWithConfig(HeapConfig{InitialGCThreshold: 1, GrowthFactor: 2})
	if h.ShouldCollect() {
		t.Error("empty heap should not want collection")
	}
	h.InternString("pushes past one byte")
	if !h.ShouldCollect() {
		t.Error("crossing the threshold should request collection")
	}
}

func TestStressModeAlwaysCollects(t *testing.T) {
	h := NewHeapWithConfig(HeapConfig{Stress: true})
	if !h.ShouldCollect() {
		t.Error("stress mode should always request collection")
	}
}

func TestForEachObjectVisitsLive(t *testing.T) {
	h := NewHeap()
	h.InternString("x")
	h.InternString("y")

	seen := 0
	h.ForEachObject(func(Obj) { seen++ })
	if seen != 2 {
		t.Errorf("visited %d objects, want 2", seen)
	}
}
