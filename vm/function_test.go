package vm

import "testing"

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func TestNewFunction(t *testing.T) {
	h := NewHeap()
	chunk := NewChunk()
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpReturn, 1)

	fn := h.NewFunction(h.InternString("add"), 2, 0, chunk)
	if fn.Arity() != 2 {
		t.Errorf("Arity() = %d, want 2", fn.Arity())
	}
	if fn.UpvalueCount() != 0 {
		t.Errorf("UpvalueCount() = %d, want 0", fn.UpvalueCount())
	}
	if fn.Chunk() != chunk {
		t.Error("Chunk() should return the compiled body")
	}
	if fn.Name().String() != "add" {
		t.Errorf("Name() = %q, want \"add\"", fn.Name().String())
	}
	if fn.Header().Type() != TypeFunction {
		t.Errorf("type tag = %v, want function", fn.Header().Type())
	}
}

func TestAnonymousFunction(t *testing.T) {
	h := NewHeap()
	fn := testFunction(h, "", 0)
	if fn.Name() != nil {
		t.Error("anonymous function should have nil name")
	}
}

func TestNewFunctionNilChunkPanics(t *testing.T) {
	h := NewHeap()
	defer func() {
		if recover() == nil {
			t.Error("NewFunction should panic on nil chunk")
		}
	}()
	h.NewFunction(nil, 0, 0, nil)
}

// ---------------------------------------------------------------------------
// Closures
// ---------------------------------------------------------------------------

func TestClosureCaptureArraySizedToFunction(t *testing.T) {
	h := NewHeap()
	fn := testFunction(h, "f", 3)
	c := h.NewClosure(fn)

	if c.UpvalueCount() != 3 {
		t.Fatalf("UpvalueCount() = %d, want 3", c.UpvalueCount())
	}
	for i := 0; i < 3; i++ {
		if c.Upvalue(i) != nil {
			t.Errorf("slot %d should be empty before population", i)
		}
	}
	if c.Function() != fn {
		t.Error("Function() should return the wrapped function")
	}
}

func TestClosurePopulation(t *testing.T) {
	h := NewHeap()
	fn := testFunction(h, "f", 1)
	stack := NewValueStack()
	slot := stack.Push(FromSmallInt(5))

	c := h.NewClosure(fn)
	c.SetUpvalue(0, h.OpenUpvalue(stack, slot))
	if c.GetCaptured(0).SmallInt() != 5 {
		t.Errorf("captured = %v, want 5", c.GetCaptured(0))
	}
}

func TestClosureUpvalueCountMismatchPanics(t *testing.T) {
	h := NewHeap()
	fn := testFunction(h, "f", 2)
	defer func() {
		if recover() == nil {
			t.Error("mismatched capture count should panic")
		}
	}()
	h.NewClosureWithUpvalues(fn, make([]*ObjUpvalue, 3))
}

func TestClosureUpvalueIndexOutOfRangePanics(t *testing.T) {
	h := NewHeap()
	c := h.NewClosure(testFunction(h, "f", 1))
	defer func() {
		if recover() == nil {
			t.Error("out of range capture index should panic")
		}
	}()
	c.Upvalue(1)
}

// ---------------------------------------------------------------------------
// Natives
// ---------------------------------------------------------------------------

func TestNativeCall(t *testing.T) {
	h := NewHeap()
	n := h.NewNative(func(argCount int, args []Value) Value {
		sum := int64(0)
		for _, a := range args[:argCount] {
			sum += a.SmallInt()
		}
		return FromSmallInt(sum)
	})

	got := n.Call([]Value{FromSmallInt(1), FromSmallInt(2), FromSmallInt(3)})
	if got.SmallInt() != 6 {
		t.Errorf("Call = %v, want 6", got)
	}
	if n.Header().Type() != TypeNative {
		t.Errorf("type tag = %v, want native", n.Header().Type())
	}
}

func TestNewNativeNilPanics(t *testing.T) {
	h := NewHeap()
	defer func() {
		if recover() == nil {
			t.Error("NewNative should panic on nil function")
		}
	}()
	h.NewNative(nil)
}
