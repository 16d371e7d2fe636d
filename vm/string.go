package vm

// ---------------------------------------------------------------------------
// ObjString: interned immutable strings
// ---------------------------------------------------------------------------

// ObjString is an immutable byte sequence with its FNV-1a hash computed at
// construction. Strings are interned: the heap holds at most one live
// ObjString per byte content, so handle (or pointer) equality substitutes
// for content comparison everywhere strings are compared.
type ObjString struct {
	ObjHeader
	chars []byte
	hash  uint32
}

// FNV-1a parameters (32-bit).
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashBytes computes the 32-bit FNV-1a hash of a byte sequence.
func HashBytes(chars []byte) uint32 {
	hash := fnvOffsetBasis
	for _, c := range chars {
		hash ^= uint32(c)
		hash *= fnvPrime
	}
	return hash
}

// Len returns the string's length in bytes.
func (s *ObjString) Len() int { return len(s.chars) }

// Hash returns the precomputed FNV-1a hash.
func (s *ObjString) Hash() uint32 { return s.hash }

// Bytes returns the string's byte content. The returned slice is the
// string's own buffer and must not be modified.
func (s *ObjString) Bytes() []byte { return s.chars }

// String returns the string's content.
func (s *ObjString) String() string { return string(s.chars) }

// ---------------------------------------------------------------------------
// Interning
// ---------------------------------------------------------------------------

// CopyString interns the given bytes, copying them into a fresh buffer on
// an intern miss. The caller keeps ownership of chars.
func (h *Heap) CopyString(chars []byte) *ObjString {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s := h.findInternedLocked(chars); s != nil {
		return s
	}
	buf := make([]byte, len(chars))
	copy(buf, chars)
	return h.internLocked(buf)
}

// TakeString interns the given bytes, taking ownership of the buffer. On an
// intern hit the buffer is discarded and the existing string returned; this
// exists so callers that just built a fresh buffer (string concatenation,
// image loading) can deduplicate without another copy. The caller must not
// use chars after the call.
func (h *Heap) TakeString(chars []byte) *ObjString {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s := h.findInternedLocked(chars); s != nil {
		return s
	}
	return h.internLocked(chars)
}

// InternString interns the content of a Go string.
func (h *Heap) InternString(s string) *ObjString {
	return h.CopyString([]byte(s))
}

// LookupString returns the interned string for the given content, or nil
// if that content has never been interned (or has been swept).
func (h *Heap) LookupString(s string) *ObjString {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hd, ok := h.strings[s]
	if !ok {
		return nil
	}
	obj := h.lookupLocked(hd)
	if obj == nil {
		return nil
	}
	return obj.(*ObjString)
}

// findInternedLocked returns the existing interned string for chars, or nil.
func (h *Heap) findInternedLocked(chars []byte) *ObjString {
	hd, ok := h.strings[string(chars)]
	if !ok {
		return nil
	}
	obj := h.lookupLocked(hd)
	if obj == nil {
		return nil
	}
	return obj.(*ObjString)
}

// internLocked constructs the ObjString around buf, registers it in the
// arena, and records it in the intern table. Caller holds h.mu and has
// already established there is no existing entry.
func (h *Heap) internLocked(buf []byte) *ObjString {
	s := &ObjString{
		chars: buf,
		hash:  HashBytes(buf),
	}
	h.registerLocked(s, TypeString, sizeObjString+uint64(len(buf)))
	h.strings[string(buf)] = s.handle
	return s
}

// removeInternLocked drops a swept string from the intern table.
// Called during sweep with h.mu held.
func (h *Heap) removeInternLocked(s *ObjString) {
	delete(h.strings, string(s.chars))
}
