package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsodmike/h7/internal/observability"
)

// EchoConfig holds configuration for the echo test application
type EchoConfig struct {
	Greeting     string
	StopByte     byte
	PollInterval time.Duration
}

// EchoApp is the console test application: it greets, then echoes every
// input byte until it reads the stop byte.
type EchoApp struct {
	config  EchoConfig
	term    Terminal
	logger  *logrus.Logger
	echoed  int64
	running atomic.Bool
}

// NewEchoApp creates the echo application
func NewEchoApp(term Terminal, config EchoConfig) (*EchoApp, error) {
	if term == nil {
		return nil, fmt.Errorf("terminal is required")
	}
	if config.StopByte == 0 {
		config.StopByte = 'b'
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Millisecond
	}

	return &EchoApp{
		config: config,
		term:   term,
		logger: observability.GetLogger(),
	}, nil
}

// Start runs the application until the stop byte arrives or ctx is done
func (a *EchoApp) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return fmt.Errorf("app already running")
	}
	defer a.running.Store(false)

	if a.config.Greeting != "" {
		if err := a.term.PutString([]byte(a.config.Greeting)); err != nil {
			return fmt.Errorf("failed to write greeting: %w", err)
		}
	}

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything that is waiting before sleeping again.
		for c := a.term.GetChar(); c != 0; c = a.term.GetChar() {
			if c == a.config.StopByte {
				a.logger.WithField("echoed", atomic.LoadInt64(&a.echoed)).Info("stop byte received, exiting echo app")
				return nil
			}
			if err := a.term.PutChar(c); err != nil {
				a.logger.WithError(err).Warn("failed to echo byte")
				continue
			}
			atomic.AddInt64(&a.echoed, 1)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("context cancelled, stopping echo app")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetStats returns application statistics
func (a *EchoApp) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"echoed":     atomic.LoadInt64(&a.echoed),
		"stop_byte":  string(a.config.StopByte),
		"is_running": a.running.Load(),
	}
}

// IsRunning returns true if the application is running
func (a *EchoApp) IsRunning() bool {
	return a.running.Load()
}
