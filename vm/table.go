package vm

// ---------------------------------------------------------------------------
// Table: interned-string-keyed association table
// ---------------------------------------------------------------------------

// Table maps interned strings to values. Because strings are interned,
// keying on the *ObjString identity is exactly content keying, with no
// hashing on lookup. Used for method tables and instance field tables.
//
// The zero Table is ready to use.
type Table struct {
	entries map[*ObjString]Value
}

// Get returns the value for key and whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Set stores a value under key. Returns true if the key was new.
func (t *Table) Set(key *ObjString, v Value) bool {
	if key == nil {
		panic("Table.Set: nil key")
	}
	if t.entries == nil {
		t.entries = make(map[*ObjString]Value)
	}
	_, existed := t.entries[key]
	t.entries[key] = v
	return !existed
}

// Delete removes key. Returns true if it was present.
func (t *Table) Delete(key *ObjString) bool {
	_, existed := t.entries[key]
	if existed {
		delete(t.entries, key)
	}
	return existed
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// ForEach calls fn for every entry. Iteration order is unspecified.
func (t *Table) ForEach(fn func(key *ObjString, v Value)) {
	for k, v := range t.entries {
		fn(k, v)
	}
}
