// Package mailbox implements the FIFO message channel shared by the
// application and companion cores.
//
// Mailbox and Message are not synchronized. Use Shared when producer and
// consumer run concurrently, or Ring for a bounded lock-free
// single-producer/single-consumer queue.
package mailbox

// Mailbox is a FIFO queue of Messages built on their forward links.
// The zero value is an empty Mailbox.
type Mailbox struct {
	head *Message
	tail *Message
	n    int
}

// New returns an empty Mailbox.
func New() Mailbox {
	return Mailbox{}
}

func (b *Mailbox) IsEmpty() bool {
	return b.head == nil
}

// Len returns the number of queued messages.
func (b *Mailbox) Len() int {
	return b.n
}

// Push appends m at the tail. Any link m carries from an earlier queue is
// discarded. A nil message is ignored.
func (b *Mailbox) Push(m *Message) {
	if m == nil {
		return
	}
	m.next = nil

	if b.IsEmpty() {
		b.head = m
		b.tail = m
	} else {
		b.tail.next = m
		b.tail = m
	}
	b.n++
}

// Pop removes and returns the head message, or nil when empty.
func (b *Mailbox) Pop() *Message {
	if b.IsEmpty() {
		return nil
	}

	m := b.head
	b.head = m.next
	if b.head == nil {
		b.tail = nil
	}
	m.next = nil
	b.n--
	return m
}

// Drain deletes every queued message and returns how many there were.
func (b *Mailbox) Drain() int {
	count := 0
	for m := b.Pop(); m != nil; m = b.Pop() {
		m.Delete()
		count++
	}
	return count
}
