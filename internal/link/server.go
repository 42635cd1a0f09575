// Package link bridges a Console to a TCP peer the way the board's UART
// bridges it to a terminal: raw bytes both ways, one peer at a time.
package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bsodmike/h7/internal/console"
	"github.com/bsodmike/h7/internal/observability"
)

// ServerConfig tunes how often output is flushed to the peer.
type ServerConfig struct {
	PollInterval   time.Duration
	ReadBufferSize int
}

type Server struct {
	addr    string
	console *console.Console
	config  ServerConfig
	logger  *logrus.Logger
}

func NewServer(addr string, c *console.Console, config ServerConfig) *Server {
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Millisecond
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 256
	}

	return &Server{
		addr:    addr,
		console: c,
		config:  config,
		logger:  observability.GetLogger(),
	}
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts peers from ln one after another until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"address": ln.Addr().String(),
	}).Info("Console link listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.WithError(err).Warn("Accept error")
			continue
		}

		s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	logger := s.logger.WithField("peer", peer)
	logger.Info("Console peer connected")

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		conn.Close()
		wg.Wait()
		logger.Info("Console peer disconnected")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readLoop(conn, logger)
	}()

	writer := bufio.NewWriter(conn)
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.console.Drain(writer)
			if err == nil && n > 0 {
				err = writer.Flush()
			}
			if err != nil {
				logger.WithError(err).Warn("Write error")
				return
			}
		}
	}
}

func (s *Server) readLoop(conn net.Conn, logger *logrus.Entry) {
	buf := make([]byte, s.config.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := s.console.Feed(buf[:n]); ferr != nil {
				logger.WithError(ferr).Warn("Failed to queue input")
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.WithError(err).Warn("Read error")
			}
			return
		}
	}
}
