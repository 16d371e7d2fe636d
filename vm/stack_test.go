package vm

import (
	"strings"
	"testing"
)

func TestStackPushPopPeek(t *testing.T) {
	s := NewValueStack()
	if slot := s.Push(FromSmallInt(1)); slot != 0 {
		t.Errorf("first Push slot = %d, want 0", slot)
	}
	s.Push(FromSmallInt(2))
	s.Push(FromSmallInt(3))

	if s.Peek(0).SmallInt() != 3 || s.Peek(2).SmallInt() != 1 {
		t.Error("Peek should count down from the top")
	}
	if s.Pop().SmallInt() != 3 {
		t.Error("Pop should return the top value")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStackPeekOutOfRangePanics(t *testing.T) {
	s := NewValueStack()
	s.Push(FromSmallInt(1))
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Peek past the bottom should panic")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "ValueStack.Peek") {
			t.Errorf("panic = %v, want the contract message", r)
		}
	}()
	s.Peek(1)
}

func TestStackPopEmptyPanics(t *testing.T) {
	s := NewValueStack()
	defer func() {
		if recover() == nil {
			t.Error("Pop on an empty stack should panic")
		}
	}()
	s.Pop()
}

func TestStackTruncate(t *testing.T) {
	s := NewValueStack()
	s.Push(FromSmallInt(1))
	s.Push(FromSmallInt(2))
	s.Truncate(1)
	if s.Len() != 1 || s.At(0).SmallInt() != 1 {
		t.Error("Truncate should keep slots below n")
	}
}
