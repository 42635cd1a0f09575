// Package console provides the byte-oriented service an application sees
// (putc, puts, getc, malloc, free) on top of a pair of mailboxes.
package console

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bsodmike/h7/internal/mailbox"
	"github.com/bsodmike/h7/internal/observability"
)

// Console connects an application to its host. Input flows from the host
// to the application, output from the application to the host.
type Console struct {
	alloc  mailbox.Allocator
	in     *mailbox.Shared
	out    *mailbox.Shared
	logger *logrus.Logger

	// the message GetChar is currently reading from
	mu      sync.Mutex
	pending *mailbox.Message
	offset  int
}

type Option func(*Console)

// WithLogger replaces the shared observability logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// New creates a console whose messages are allocated from alloc.
func New(alloc mailbox.Allocator, opts ...Option) *Console {
	c := &Console{
		alloc:  alloc,
		in:     mailbox.NewShared(),
		out:    mailbox.NewShared(),
		logger: observability.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PutChar queues a single byte of output.
func (c *Console) PutChar(b byte) error {
	return c.PutString([]byte{b})
}

// PutString queues s as one output message.
func (c *Console) PutString(s []byte) error {
	if len(s) == 0 {
		return nil
	}

	msg, err := mailbox.NewMessageCopy(c.alloc, s)
	if err != nil {
		c.logger.WithError(err).WithField("length", len(s)).Warn("dropping console output")
		return errors.Wrap(err, "put string")
	}
	c.out.Push(msg)
	return nil
}

// GetChar returns the next input byte, or 0 when no input is waiting.
func (c *Console) GetChar() byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.pending == nil || c.offset >= c.pending.Size() {
		if c.pending != nil {
			c.pending.Delete()
			c.pending = nil
		}
		c.pending = c.in.Pop()
		c.offset = 0
		if c.pending == nil {
			return 0
		}
	}

	b := c.pending.Data()[c.offset]
	c.offset++
	return b
}

// Allocate hands out application memory from the console's allocator.
func (c *Console) Allocate(size int) []byte {
	return c.alloc.Allocate(size)
}

// Release returns memory obtained from Allocate.
func (c *Console) Release(buf []byte) {
	c.alloc.Release(buf)
}

// Feed queues data as input for the application.
func (c *Console) Feed(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	msg, err := mailbox.NewMessageCopy(c.alloc, data)
	if err != nil {
		c.logger.WithError(err).WithField("length", len(data)).Warn("dropping console input")
		return errors.Wrap(err, "feed")
	}
	c.in.Push(msg)
	return nil
}

// Drain writes all queued output to w in order and returns the number of
// bytes written. On a write error the failing message is discarded and the
// remaining output stays queued.
func (c *Console) Drain(w io.Writer) (int, error) {
	written := 0
	for {
		msg := c.out.Pop()
		if msg == nil {
			return written, nil
		}

		n, err := w.Write(msg.Data())
		written += n
		msg.Delete()
		if err != nil {
			return written, errors.Wrap(err, "drain console output")
		}
	}
}

// Pending reports how many input and output messages are queued.
func (c *Console) Pending() (in, out int) {
	return c.in.Len(), c.out.Len()
}

// Close discards everything still queued in either direction.
func (c *Console) Close() {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Delete()
		c.pending = nil
	}
	c.mu.Unlock()

	in := c.in.Drain()
	out := c.out.Drain()
	if in > 0 || out > 0 {
		c.logger.WithFields(logrus.Fields{
			"input":  in,
			"output": out,
		}).Debug("discarded queued console messages")
	}
}
