package worker

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsodmike/h7/internal/observability"
)

// Stdout as OutputFile sends the transcript to standard output.
const Stdout = "-"

// FileWriterConfig holds configuration for the transcript writer
type FileWriterConfig struct {
	OutputFile    string
	FlushInterval time.Duration
	AppendMode    bool
}

// FileWriterWorker drains console output into a transcript file
type FileWriterWorker struct {
	config  FileWriterConfig
	output  Output
	logger  *logrus.Logger
	written int64
	running atomic.Bool
	file    *os.File
	owned   bool
}

// NewFileWriterWorker creates a new file writer worker
func NewFileWriterWorker(output Output, config FileWriterConfig) (*FileWriterWorker, error) {
	if output == nil {
		return nil, fmt.Errorf("console output is required")
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = time.Second
	}

	if config.OutputFile == Stdout {
		return &FileWriterWorker{
			config: config,
			output: output,
			logger: observability.GetLogger(),
			file:   os.Stdout,
		}, nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if config.AppendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(config.OutputFile, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	return &FileWriterWorker{
		config: config,
		output: output,
		logger: observability.GetLogger(),
		file:   file,
		owned:  true,
	}, nil
}

// Start drains console output to the file until ctx is done
func (w *FileWriterWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("worker already running")
	}
	defer w.running.Store(false)

	flushTicker := time.NewTicker(w.config.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping writer")
			return w.flush()

		case <-flushTicker.C:
			if err := w.flush(); err != nil {
				return fmt.Errorf("failed to flush transcript: %w", err)
			}
		}
	}
}

func (w *FileWriterWorker) flush() error {
	n, err := w.output.Drain(w.file)
	if n > 0 {
		atomic.AddInt64(&w.written, int64(n))
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if w.owned {
		if err := w.file.Sync(); err != nil {
			w.logger.WithError(err).Warn("failed to sync file to disk")
		}
	}

	w.logger.WithFields(logrus.Fields{
		"bytes": n,
		"total": atomic.LoadInt64(&w.written),
	}).Debug("flushed console output to file")

	return nil
}

// GetStats returns worker statistics
func (w *FileWriterWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"written":        atomic.LoadInt64(&w.written),
		"output_file":    w.config.OutputFile,
		"flush_interval": w.config.FlushInterval.String(),
		"append_mode":    w.config.AppendMode,
		"is_running":     w.running.Load(),
	}
}

// Close closes the transcript file. Standard output is left open.
func (w *FileWriterWorker) Close() error {
	if w.file != nil && w.owned {
		return w.file.Close()
	}
	return nil
}

// IsRunning returns true if the worker is running
func (w *FileWriterWorker) IsRunning() bool {
	return w.running.Load()
}
