package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsodmike/h7/internal/observability"
)

// FileReaderConfig holds configuration for script replay
type FileReaderConfig struct {
	InputFile  string
	BatchSize  int
	BufferSize int
	LineDelay  time.Duration
}

// FileReaderWorker replays a file into console input, one line per message
type FileReaderWorker struct {
	config    FileReaderConfig
	input     Input
	logger    *logrus.Logger
	processed int64
	running   atomic.Bool
}

// NewFileReaderWorker creates a new file reader worker
func NewFileReaderWorker(input Input, config FileReaderConfig) (*FileReaderWorker, error) {
	if input == nil {
		return nil, fmt.Errorf("console input is required")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = bufio.MaxScanTokenSize
	}

	return &FileReaderWorker{
		config: config,
		input:  input,
		logger: observability.GetLogger(),
	}, nil
}

// Start reads the file and feeds it to the console
func (w *FileReaderWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("worker already running")
	}
	defer w.running.Store(false)

	file, err := os.Open(w.config.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, w.config.BufferSize)
	scanner.Buffer(buf, w.config.BufferSize)

	batch := make([][]byte, 0, w.config.BatchSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping reader")
			return ctx.Err()
		default:
		}

		line := make([]byte, 0, len(scanner.Bytes())+1)
		line = append(line, scanner.Bytes()...)
		line = append(line, '\n')
		batch = append(batch, line)

		if len(batch) >= w.config.BatchSize {
			if err := w.processBatch(ctx, batch); err != nil {
				return fmt.Errorf("failed to process batch: %w", err)
			}
			batch = batch[:0]
		}
	}

	if err := w.processBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to flush final batch: %w", err)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"processed": atomic.LoadInt64(&w.processed),
		"file":      w.config.InputFile,
	}).Info("script replay completed")

	return nil
}

func (w *FileReaderWorker) processBatch(ctx context.Context, batch [][]byte) error {
	for _, line := range batch {
		if w.config.LineDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.LineDelay):
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := w.input.Feed(line); err != nil {
			return fmt.Errorf("failed to feed line %d: %w", atomic.LoadInt64(&w.processed)+1, err)
		}
		atomic.AddInt64(&w.processed, 1)

		w.logger.WithFields(logrus.Fields{
			"line":   atomic.LoadInt64(&w.processed),
			"length": len(line),
		}).Debug("fed line to console")
	}
	return nil
}

// GetStats returns worker statistics
func (w *FileReaderWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"processed":   atomic.LoadInt64(&w.processed),
		"input_file":  w.config.InputFile,
		"batch_size":  w.config.BatchSize,
		"buffer_size": w.config.BufferSize,
		"is_running":  w.running.Load(),
	}
}

// IsRunning returns true if the worker is running
func (w *FileReaderWorker) IsRunning() bool {
	return w.running.Load()
}
