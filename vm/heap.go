package vm

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Handle: generation-checked arena index
// ---------------------------------------------------------------------------

// Handle addresses a heap object: a 32-bit arena slot index in the low bits
// and a 16-bit generation in bits 32-47. The whole handle fits in a Value's
// 48-bit NaN-boxing payload. A handle whose generation does not match its
// slot's current generation is stale (the slot was swept and reused).
type Handle uint64

// InvalidHandle is the zero handle. Slot 0 of every arena is reserved so
// that no live object is ever addressed by it.
const InvalidHandle Handle = 0

func newHandle(index uint32, gen uint16) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

// Index returns the arena slot index.
func (h Handle) Index() uint32 { return uint32(h) }

// Generation returns the handle's generation stamp.
func (h Handle) Generation() uint16 { return uint16(h >> 32) }

// ---------------------------------------------------------------------------
// Heap configuration
// ---------------------------------------------------------------------------

// HeapConfig tunes allocation accounting and collection pacing.
type HeapConfig struct {
	// InitialGCThreshold is the allocated-byte count that first makes
	// ShouldCollect return true.
	InitialGCThreshold uint64

	// GrowthFactor scales the threshold after each collection.
	GrowthFactor float64

	// Stress makes ShouldCollect return true on every allocation.
	// Useful for shaking out missing roots in tests.
	Stress bool
}

// DefaultHeapConfig returns the default tuning.
func DefaultHeapConfig() HeapConfig {
	return HeapConfig{
		InitialGCThreshold: 1024 * 1024,
		GrowthFactor:       2.0,
	}
}

// ---------------------------------------------------------------------------
// Heap: the allocation arena and registries
// ---------------------------------------------------------------------------

// Heap owns all process-wide mutable state of the object model: the object
// arena (the allocation registry the collector sweeps), the string intern
// table, and the open-upvalue list. It is constructed once at runtime start.
//
// A single logical mutator thread is assumed; the lock makes the intern and
// arena bookkeeping safe for a multi-threaded host, which must still ensure
// collection does not run concurrently with mutation.
type Heap struct {
	mu sync.RWMutex

	// Arena of objects addressed by generation-checked handles.
	// Slot 0 is reserved; a swept slot goes on the free list with its
	// generation bumped so stale handles can be detected.
	slots []heapSlot
	free  []uint32

	// Global string intern table: content -> handle of the unique ObjString.
	strings map[string]Handle

	// Open upvalues, ordered innermost (highest slot) first.
	openUpvalues []*ObjUpvalue

	// Allocation accounting for collection pacing.
	bytesAllocated uint64
	nextGC         uint64
	liveCount      int

	config HeapConfig
}

type heapSlot struct {
	obj  Obj
	gen  uint16
	size uint64 // accounted allocation size, subtracted on sweep
}

// NewHeap creates a heap with default configuration.
func NewHeap() *Heap {
	return NewHeapWithConfig(DefaultHeapConfig())
}

// NewHeapWithConfig creates a heap with the given tuning.
func NewHeapWithConfig(cfg HeapConfig) *Heap {
	if cfg.GrowthFactor < 1 {
		cfg.GrowthFactor = DefaultHeapConfig().GrowthFactor
	}
	if cfg.InitialGCThreshold == 0 {
		cfg.InitialGCThreshold = DefaultHeapConfig().InitialGCThreshold
	}
	return &Heap{
		slots:   make([]heapSlot, 1, 256), // slot 0 reserved
		strings: make(map[string]Handle),
		nextGC:  cfg.InitialGCThreshold,
		config:  cfg,
	}
}

// ---------------------------------------------------------------------------
// Registration and lookup
// ---------------------------------------------------------------------------

// register splices a fully initialized object into the arena and stamps its
// header with the new handle. Every constructor calls this as its final
// step, so an interleaved collector pass never observes a partial object.
func (h *Heap) register(o Obj, typ ObjType, size uint64) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registerLocked(o, typ, size)
}

// registerLocked is register for callers that already hold h.mu, such as
// the interning and upvalue paths that must stay atomic around their own
// lookup-then-insert.
func (h *Heap) registerLocked(o Obj, typ ObjType, size uint64) Handle {
	hdr := o.Header()
	hdr.typ = typ
	hdr.marked = false

	var index uint32
	var gen uint16
	if n := len(h.free); n > 0 {
		index = h.free[n-1]
		h.free = h.free[:n-1]
		gen = h.slots[index].gen
		h.slots[index].obj = o
		h.slots[index].size = size
	} else {
		index = uint32(len(h.slots))
		h.slots = append(h.slots, heapSlot{obj: o, size: size})
		gen = 0
	}

	hdr.handle = newHandle(index, gen)
	h.bytesAllocated += size
	h.liveCount++
	return hdr.handle
}

// lookup resolves a handle to its object, or nil if the handle is stale
// or out of range.
func (h *Heap) lookup(hd Handle) Obj {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lookupLocked(hd)
}

func (h *Heap) lookupLocked(hd Handle) Obj {
	index := hd.Index()
	if index == 0 || int(index) >= len(h.slots) {
		return nil
	}
	slot := h.slots[index]
	if slot.obj == nil || slot.gen != hd.Generation() {
		return nil
	}
	return slot.obj
}

// freeSlot releases an arena slot during sweep. The generation is bumped so
// every outstanding handle to the old occupant becomes stale.
func (h *Heap) freeSlot(index uint32) {
	h.slots[index].obj = nil
	h.slots[index].gen++
	h.free = append(h.free, index)
	h.liveCount--
}

// ---------------------------------------------------------------------------
// Accounting
// ---------------------------------------------------------------------------

// LiveObjects returns the number of objects currently in the arena.
func (h *Heap) LiveObjects() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.liveCount
}

// BytesAllocated returns the running allocated-byte estimate.
func (h *Heap) BytesAllocated() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bytesAllocated
}

// NextGC returns the current collection threshold in bytes.
func (h *Heap) NextGC() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.nextGC
}

// ShouldCollect reports whether allocation has crossed the collection
// threshold (always true in stress mode).
func (h *Heap) ShouldCollect() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config.Stress || h.bytesAllocated > h.nextGC
}

// InternedStrings returns the number of distinct interned strings.
func (h *Heap) InternedStrings() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.strings)
}

// ForEachObject calls fn for every live object in the arena.
// Iteration order is arena order, not allocation order.
func (h *Heap) ForEachObject(fn func(Obj)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := 1; i < len(h.slots); i++ {
		if o := h.slots[i].obj; o != nil {
			fn(o)
		}
	}
}
