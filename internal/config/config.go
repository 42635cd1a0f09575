package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/bsodmike/h7/internal/link"
	"github.com/bsodmike/h7/internal/worker"
)

// Config holds the simulator configuration
type Config struct {
	LinkAddr  string
	Headless  bool
	LogLevel  string
	HeapLimit int

	Link         link.ServerConfig
	EchoConfig   worker.EchoConfig
	ReaderConfig worker.FileReaderConfig
	WriterConfig worker.FileWriterConfig
}

// LoadFromEnv loads configuration from the environment, reading a .env
// file first when one is present.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	heapLimit, err := strconv.Atoi(getEnv("H7_HEAP_LIMIT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid H7_HEAP_LIMIT: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("H7_POLL_INTERVAL", "10ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid H7_POLL_INTERVAL: %w", err)
	}

	stopByte := getEnv("H7_STOP_BYTE", "b")
	if len(stopByte) != 1 {
		return nil, fmt.Errorf("invalid H7_STOP_BYTE: want a single byte, got %q", stopByte)
	}

	batchSize, err := strconv.Atoi(getEnv("BATCH_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_SIZE: %w", err)
	}

	bufferSize, err := strconv.Atoi(getEnv("BUFFER_SIZE", "65536"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUFFER_SIZE: %w", err)
	}

	lineDelay, err := time.ParseDuration(getEnv("LINE_DELAY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LINE_DELAY: %w", err)
	}

	flushInterval, err := time.ParseDuration(getEnv("FLUSH_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLUSH_INTERVAL: %w", err)
	}

	headless := getEnvBool("H7_HEADLESS", false)

	// Without the link, output has no reader unless a transcript takes it.
	transcript := os.Getenv("TRANSCRIPT_FILE")
	if headless && transcript == "" {
		transcript = worker.Stdout
	}

	return &Config{
		LinkAddr:  getEnv("H7_LINK_ADDR", ":7070"),
		Headless:  headless,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		HeapLimit: heapLimit,
		Link: link.ServerConfig{
			PollInterval: pollInterval,
		},
		EchoConfig: worker.EchoConfig{
			Greeting:     getEnv("H7_GREETING", "Hello from testapp!\n"),
			StopByte:     stopByte[0],
			PollInterval: pollInterval,
		},
		ReaderConfig: worker.FileReaderConfig{
			InputFile:  os.Getenv("SCRIPT_FILE"),
			BatchSize:  batchSize,
			BufferSize: bufferSize,
			LineDelay:  lineDelay,
		},
		WriterConfig: worker.FileWriterConfig{
			OutputFile:    transcript,
			FlushInterval: flushInterval,
			AppendMode:    getEnvBool("APPEND_MODE", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
