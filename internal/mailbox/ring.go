package mailbox

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrFull is returned by Ring.TryPush when every slot is taken.
var ErrFull = errors.New("mailbox: ring full")

// Ring is a bounded single-producer/single-consumer queue of Messages.
// It never allocates after construction. Exactly one goroutine may push
// and exactly one goroutine may pop.
type Ring struct {
	_     [0]func()     // no copying.
	head  atomic.Uint64 // next slot to write, producer only
	tail  atomic.Uint64 // next slot to read, consumer only
	mask  uint64
	slots []*Message
}

// NewRing creates a ring holding at least capacity messages. The capacity
// is rounded up to a power of two.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &Ring{
		mask:  size - 1,
		slots: make([]*Message, size),
	}
}

// TryPush enqueues m or returns ErrFull. A nil message is ignored.
func (r *Ring) TryPush(m *Message) error {
	if m == nil {
		return nil
	}

	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail > r.mask {
		return ErrFull
	}

	m.next = nil
	r.slots[head&r.mask] = m
	r.head.Store(head + 1)
	return nil
}

// TryPop dequeues the oldest message, or returns nil when empty.
func (r *Ring) TryPop() *Message {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		return nil
	}

	slot := tail & r.mask
	m := r.slots[slot]
	r.slots[slot] = nil
	r.tail.Store(tail + 1)
	return m
}

func (r *Ring) IsEmpty() bool {
	return r.tail.Load() == r.head.Load()
}

// Len returns a snapshot of the number of queued messages.
func (r *Ring) Len() int {
	// tail first: head can only move further ahead of it.
	tail := r.tail.Load()
	head := r.head.Load()
	n := int(head - tail)
	if n > len(r.slots) {
		n = len(r.slots)
	}
	return n
}

func (r *Ring) Cap() int {
	return len(r.slots)
}
