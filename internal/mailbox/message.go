package mailbox

import "github.com/pkg/errors"

var (
	// ErrAllocation is returned when the allocator cannot satisfy a
	// control block or payload request.
	ErrAllocation = errors.New("mailbox: allocation failed")
	// ErrNilData is returned when a copy is requested from a nil buffer.
	ErrNilData = errors.New("mailbox: nil data")
)

// Message is a queueable unit of payload data.
//
// A Message is owned by exactly one party at a time: its creator, the
// Mailbox it was pushed to, or whoever popped it. The owner releases it
// with Delete.
type Message struct {
	next *Message

	data  []byte
	hdr   []byte
	alloc Allocator
}

// NewMessage adopts buf without copying it. The Message becomes the sole
// owner of buf, which must have been allocated by a.
func NewMessage(a Allocator, buf []byte) (*Message, error) {
	hdr := a.Allocate(HeaderSize)
	if hdr == nil {
		return nil, ErrAllocation
	}

	return &Message{data: buf, hdr: hdr, alloc: a}, nil
}

// NewMessageCopy allocates a buffer from a and copies data into it.
func NewMessageCopy(a Allocator, data []byte) (*Message, error) {
	if data == nil {
		return nil, ErrNilData
	}

	hdr := a.Allocate(HeaderSize)
	if hdr == nil {
		return nil, ErrAllocation
	}

	buf := a.Allocate(len(data))
	if buf == nil {
		a.Release(hdr)
		return nil, ErrAllocation
	}
	copy(buf, data)

	return &Message{data: buf, hdr: hdr, alloc: a}, nil
}

// Data returns the payload. The slice is invalid after Delete.
func (m *Message) Data() []byte {
	return m.data
}

// Size returns the payload size in bytes.
func (m *Message) Size() int {
	return len(m.data)
}

// Delete releases the payload and then the control block. Calling Delete
// again is a no-op.
func (m *Message) Delete() {
	if m == nil || m.hdr == nil {
		return
	}

	m.alloc.Release(m.data)
	m.alloc.Release(m.hdr)
	m.data = nil
	m.hdr = nil
	m.next = nil
}
