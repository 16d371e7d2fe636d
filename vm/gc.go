package vm

import (
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Collector: mark/sweep driver over the heap's hooks
// ---------------------------------------------------------------------------

// CollectStats holds statistics from a single collection cycle.
type CollectStats struct {
	Cycle       uint64
	Marked      int
	Swept       int
	BytesBefore uint64
	BytesAfter  uint64
	NextGC      uint64
	Duration    time.Duration
	Timestamp   time.Time
}

// RootMarker enumerates one source of GC roots by calling mark on every
// root value. The interpreter registers markers for its value stack, its
// globals table, and anything else it holds live.
type RootMarker func(mark func(Value))

// Collector drives mark/sweep collection over a Heap using the hooks the
// object model exposes: the per-object mark bit and each variant's internal
// edges. It must only run at safe points, never concurrently with
// allocation or mutation.
type Collector struct {
	heap      *Heap
	roots     []RootMarker
	gray      []Obj
	markCount int
	log       commonlog.Logger

	cycleCount atomic.Uint64
	lastStats  atomic.Value // *CollectStats
}

// NewCollector creates a collector for the given heap.
func NewCollector(h *Heap) *Collector {
	return &Collector{
		heap: h,
		log:  commonlog.GetLogger("tarn.gc"),
	}
}

// AddRoots registers a root source. Markers run on every cycle.
func (c *Collector) AddRoots(m RootMarker) {
	c.roots = append(c.roots, m)
}

// AddStackRoots registers a value stack as a root source.
func (c *Collector) AddStackRoots(s *ValueStack) {
	c.AddRoots(func(mark func(Value)) {
		s.ForEach(mark)
	})
}

// CycleCount returns the number of completed collection cycles.
func (c *Collector) CycleCount() uint64 {
	return c.cycleCount.Load()
}

// LastStats returns statistics from the most recent cycle, or nil if no
// cycle has run yet.
func (c *Collector) LastStats() *CollectStats {
	v := c.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*CollectStats)
}

// MaybeCollect runs a cycle if allocation has crossed the heap's threshold
// (or stress mode is on). Returns nil when no cycle ran.
func (c *Collector) MaybeCollect() *CollectStats {
	if !c.heap.ShouldCollect() {
		return nil
	}
	return c.Collect()
}

// Collect runs one full mark/sweep cycle and returns its statistics.
func (c *Collector) Collect() *CollectStats {
	start := time.Now()
	stats := &CollectStats{
		BytesBefore: c.heap.BytesAllocated(),
		Timestamp:   start,
	}

	c.markCount = 0
	c.mark()
	c.trace()
	swept := c.sweep()

	stats.Cycle = c.cycleCount.Add(1)
	stats.Marked = c.markCount
	stats.Swept = swept
	stats.BytesAfter = c.heap.BytesAllocated()
	stats.NextGC = c.heap.NextGC()
	stats.Duration = time.Since(start)
	c.lastStats.Store(stats)

	c.log.Debugf("gc cycle %d: marked %d, swept %d, %d -> %d bytes, next at %d",
		stats.Cycle, stats.Marked, stats.Swept,
		stats.BytesBefore, stats.BytesAfter, stats.NextGC)
	return stats
}

// ---------------------------------------------------------------------------
// Mark phase
// ---------------------------------------------------------------------------

// MarkValue marks the object a value refers to, if any. Scalars need no
// marking. Exposed so interpreter-owned structures can participate in
// tracing.
func (c *Collector) MarkValue(v Value) {
	if !v.IsObject() {
		return
	}
	if o := c.heap.lookup(v.ObjectHandle()); o != nil {
		c.MarkObject(o)
	}
}

// MarkObject sets the object's mark bit and queues it for edge tracing.
func (c *Collector) MarkObject(o Obj) {
	hdr := o.Header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	c.markCount++
	c.gray = append(c.gray, o)
}

// mark seeds the gray stack from every registered root source plus the
// heap's open-upvalue list.
func (c *Collector) mark() {
	for _, m := range c.roots {
		m(c.MarkValue)
	}

	c.heap.mu.RLock()
	open := append([]*ObjUpvalue(nil), c.heap.openUpvalues...)
	c.heap.mu.RUnlock()
	for _, u := range open {
		c.MarkObject(u)
	}
}

// trace drains the gray stack, marking each object's internal edges.
func (c *Collector) trace() {
	for len(c.gray) > 0 {
		o := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		c.blacken(o)
	}
}

// blacken marks the edges a single object exposes to the collector.
func (c *Collector) blacken(o Obj) {
	switch o := o.(type) {
	case *ObjString, *ObjNative:
		// No outgoing edges.
	case *ObjUpvalue:
		// An open cell's slot is on a stack, which is a root itself;
		// only the closed copy is an edge.
		if !o.IsOpen() {
			c.MarkValue(o.closed)
		}
	case *ObjFunction:
		if o.name != nil {
			c.MarkObject(o.name)
		}
		for _, v := range o.chunk.Constants {
			c.MarkValue(v)
		}
	case *ObjClosure:
		c.MarkObject(o.function)
		for _, u := range o.upvalues {
			if u != nil {
				c.MarkObject(u)
			}
		}
	case *ObjClass:
		c.MarkObject(o.name)
		o.methods.ForEach(func(k *ObjString, v Value) {
			c.MarkObject(k)
			c.MarkValue(v)
		})
	case *ObjInstance:
		c.MarkObject(o.class)
		o.fields.ForEach(func(k *ObjString, v Value) {
			c.MarkObject(k)
			c.MarkValue(v)
		})
	case *ObjBoundMethod:
		c.MarkValue(o.receiver)
		c.MarkObject(o.method)
	}
}

// ---------------------------------------------------------------------------
// Sweep phase
// ---------------------------------------------------------------------------

// sweep frees every unmarked object, clears surviving marks, and adjusts
// the collection threshold.
func (c *Collector) sweep() int {
	h := c.heap
	h.mu.Lock()
	defer h.mu.Unlock()

	swept := 0
	var bytesFreed uint64
	for i := 1; i < len(h.slots); i++ {
		o := h.slots[i].obj
		if o == nil {
			continue
		}
		hdr := o.Header()
		if hdr.marked {
			hdr.marked = false
			continue
		}
		if s, ok := o.(*ObjString); ok {
			h.removeInternLocked(s)
		}
		bytesFreed += h.slots[i].size
		h.freeSlot(uint32(i))
		swept++
	}

	h.bytesAllocated -= bytesFreed
	next := uint64(float64(h.bytesAllocated) * h.config.GrowthFactor)
	if next < h.config.InitialGCThreshold {
		next = h.config.InitialGCThreshold
	}
	h.nextGC = next
	return swept
}
