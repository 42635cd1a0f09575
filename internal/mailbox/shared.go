package mailbox

import "sync"

// Shared is a Mailbox guarded by a mutex, for producers and consumers that
// run in different goroutines.
type Shared struct {
	mu  sync.Mutex
	box Mailbox
}

func NewShared() *Shared {
	return &Shared{}
}

func (s *Shared) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box.IsEmpty()
}

func (s *Shared) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box.Len()
}

func (s *Shared) Push(m *Message) {
	s.mu.Lock()
	s.box.Push(m)
	s.mu.Unlock()
}

func (s *Shared) Pop() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box.Pop()
}

// Drain deletes every queued message. Deletion happens outside the lock.
func (s *Shared) Drain() int {
	s.mu.Lock()
	box := s.box
	s.box = Mailbox{}
	s.mu.Unlock()

	return box.Drain()
}
