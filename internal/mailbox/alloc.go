package mailbox

import (
	"sync"
	"sync/atomic"
)

// HeaderSize is the size of a message control block (next, data, size) on
// the 32-bit target. Every Message charges it to its allocator.
const HeaderSize = 12

// MaxAllocation caps a single request, including on an unbounded Heap.
const MaxAllocation = 64 << 20

// Allocator backs message control blocks and payload buffers.
// Allocate returns nil when the request cannot be satisfied.
type Allocator interface {
	Allocate(size int) []byte
	Release(buf []byte)
}

// Heap allocates from the Go heap, optionally bounded by Limit bytes.
type Heap struct {
	Limit int

	mu    sync.Mutex
	inUse int
}

// NewHeap creates a heap allocator. A limit of zero or less means unbounded.
func NewHeap(limit int) *Heap {
	if limit < 0 {
		limit = 0
	}
	return &Heap{Limit: limit}
}

func (h *Heap) Allocate(size int) []byte {
	if size < 0 || size > MaxAllocation {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Limit > 0 && size > h.Limit-h.inUse {
		return nil
	}
	h.inUse += size
	return make([]byte, size)
}

func (h *Heap) Release(buf []byte) {
	if buf == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.inUse -= cap(buf)
	if h.inUse < 0 {
		h.inUse = 0
	}
}

// InUse returns the number of bytes currently handed out.
func (h *Heap) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

// Counters records allocator traffic. Share one instance between the
// allocators that should be accounted together.
type Counters struct {
	Allocs   atomic.Int64
	Releases atomic.Int64
	Failures atomic.Int64
	Bytes    atomic.Int64
}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Allocs   int64 `json:"allocs"`
	Releases int64 `json:"releases"`
	Failures int64 `json:"failures"`
	Bytes    int64 `json:"bytes"`
}

// Outstanding returns allocations not yet released.
func (c *Counters) Outstanding() int64 {
	return c.Allocs.Load() - c.Releases.Load()
}

func (c *Counters) Snapshot() Stats {
	return Stats{
		Allocs:   c.Allocs.Load(),
		Releases: c.Releases.Load(),
		Failures: c.Failures.Load(),
		Bytes:    c.Bytes.Load(),
	}
}

// Counting wraps an Allocator and records every call into Counters.
type Counting struct {
	next     Allocator
	counters *Counters
}

// NewCounting instruments next. A nil counters gets a fresh instance.
func NewCounting(next Allocator, counters *Counters) *Counting {
	if counters == nil {
		counters = &Counters{}
	}
	return &Counting{next: next, counters: counters}
}

func (c *Counting) Allocate(size int) []byte {
	buf := c.next.Allocate(size)
	if buf == nil {
		c.counters.Failures.Add(1)
		return nil
	}
	c.counters.Allocs.Add(1)
	c.counters.Bytes.Add(int64(cap(buf)))
	return buf
}

func (c *Counting) Release(buf []byte) {
	if buf == nil {
		return
	}
	c.counters.Releases.Add(1)
	c.counters.Bytes.Add(-int64(cap(buf)))
	c.next.Release(buf)
}

// Counters returns the counters this allocator records into.
func (c *Counting) Counters() *Counters {
	return c.counters
}
