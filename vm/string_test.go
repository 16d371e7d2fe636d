package vm

import "testing"

// ---------------------------------------------------------------------------
// FNV-1a hashing
// ---------------------------------------------------------------------------

func TestHashBytesKnownVectors(t *testing.T) {
	cases := []struct {
		input string
		want  uint32
	}{
		{"", 2166136261}, // the offset basis
		{"a", 0xe40c292c},
		{"foobar", 0xbf9cf968},
	}
	for _, c := range cases {
		if got := HashBytes([]byte(c.input)); got != c.want {
			t.Errorf("HashBytes(%q) = %08x, want %08x", c.input, got, c.want)
		}
	}
}

func TestHashBytesDeterministic(t *testing.T) {
	data := []byte("the quick brown fox")
	if HashBytes(data) != HashBytes(data) {
		t.Error("hash of the same bytes must be identical")
	}
}

func TestStringHashPrecomputed(t *testing.T) {
	h := NewHeap()
	s := h.CopyString([]byte("cat"))
	if s.Hash() != HashBytes([]byte("cat")) {
		t.Errorf("stored hash %08x does not match recomputed %08x",
			s.Hash(), HashBytes([]byte("cat")))
	}
}

// ---------------------------------------------------------------------------
// Interning
// ---------------------------------------------------------------------------

func TestCopyStringInterns(t *testing.T) {
	h := NewHeap()
	a := h.CopyString([]byte("hello"))
	b := h.CopyString([]byte("hello"))
	if a != b {
		t.Error("equal content must intern to the same object")
	}
	if a.String() != "hello" || a.Len() != 5 {
		t.Errorf("content = %q len %d, want \"hello\" len 5", a.String(), a.Len())
	}

	c := h.CopyString([]byte("world"))
	if c == a {
		t.Error("different content must intern to different objects")
	}
	if h.InternedStrings() != 2 {
		t.Errorf("InternedStrings() = %d, want 2", h.InternedStrings())
	}
}

func TestCopyStringDoesNotAliasCallerBuffer(t *testing.T) {
	h := NewHeap()
	buf := []byte("mutable")
	s := h.CopyString(buf)
	buf[0] = 'X'
	if s.String() != "mutable" {
		t.Errorf("interned content changed to %q when caller buffer mutated", s.String())
	}
}

func TestTakeStringDedupesAgainstExisting(t *testing.T) {
	h := NewHeap()
	a := h.CopyString([]byte("cat"))
	b := h.CopyString([]byte("cat"))
	if a != b {
		t.Fatal("copyString should intern")
	}

	fresh := []byte("cat")
	c := h.TakeString(fresh)
	if c != a {
		t.Error("takeString with existing content must return the interned object")
	}
	if h.InternedStrings() != 1 {
		t.Errorf("InternedStrings() = %d, want 1", h.InternedStrings())
	}
}

func TestTakeStringOwnsFreshBuffer(t *testing.T) {
	h := NewHeap()
	buf := []byte("unique-content")
	s := h.TakeString(buf)
	if s.String() != "unique-content" {
		t.Errorf("content = %q", s.String())
	}
	// A second take of equal content deduplicates to the first.
	if h.TakeString([]byte("unique-content")) != s {
		t.Error("second takeString should return the same object")
	}
}

func TestInternStringAndLookup(t *testing.T) {
	h := NewHeap()
	s := h.InternString("point")
	if h.LookupString("point") != s {
		t.Error("LookupString should find the interned object")
	}
	if h.LookupString("absent") != nil {
		t.Error("LookupString should return nil for unknown content")
	}
}

func TestStringIdentitySubstitutesForContentEquality(t *testing.T) {
	h := NewHeap()
	a := h.CopyString([]byte("name"))
	b := h.InternString("name")
	c := h.TakeString([]byte("name"))
	if a != b || b != c {
		t.Error("all intern paths must converge on one object per content")
	}
	if a.Value() != b.Value() {
		t.Error("boxed values of the same string must be identical")
	}
}
