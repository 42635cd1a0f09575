package link

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Client is the terminal end of a console link.
type Client struct {
	conn   net.Conn
	writer *bufio.Writer
	reader *bufio.Reader
	buf    []byte
}

func NewClient(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		buf:    make([]byte, 4096),
	}, nil
}

// Send writes data to the board's console input.
func (c *Client) Send(data []byte) error {
	if _, err := c.writer.Write(data); err != nil {
		return errors.Wrap(err, "send")
	}
	return errors.Wrap(c.writer.Flush(), "send")
}

// Recv returns whatever console output arrives within timeout, or nil
// when nothing arrived.
func (c *Client) Recv(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(err, "set read deadline")
	}

	n, err := c.reader.Read(c.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, c.buf[:n])
		return out, nil
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return nil, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
