package main

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/bsodmike/h7/internal/link"
	"github.com/bsodmike/h7/internal/observability"
)

func main() {
	logger := observability.GetLogger()

	addr := ":7070"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	client, err := link.NewClient(addr)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to console link")
	}
	defer client.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				lines <- line
			}
			if err != nil {
				if err != io.EOF {
					logger.WithError(err).Error("Failed to read stdin")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-sigChan:
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := client.Send(line); err != nil {
				logger.WithError(err).Error("Failed to send input")
				return
			}
		default:
		}

		data, err := client.Recv(10 * time.Millisecond)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.WithError(err).Error("Failed to receive output")
			}
			return
		}
		if len(data) > 0 {
			os.Stdout.Write(data)
		}
	}
}
