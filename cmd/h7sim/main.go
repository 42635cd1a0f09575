package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bsodmike/h7/internal/config"
	"github.com/bsodmike/h7/internal/console"
	"github.com/bsodmike/h7/internal/link"
	"github.com/bsodmike/h7/internal/mailbox"
	"github.com/bsodmike/h7/internal/observability"
	"github.com/bsodmike/h7/internal/worker"
)

func main() {
	logger := observability.GetLogger()

	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	observability.InitLogger(cfg.LogLevel)
	logger.WithFields(logrus.Fields{
		"headless":   cfg.Headless,
		"heap_limit": cfg.HeapLimit,
	}).Info("Starting h7 simulator...")

	counters := &mailbox.Counters{}
	con := console.New(mailbox.NewCounting(mailbox.NewHeap(cfg.HeapLimit), counters))

	app, err := worker.NewEchoApp(con, cfg.EchoConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create echo app")
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := app.Start(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "echo app error")
		}

		// The session ends with the application.
		cancel()
		return nil
	})

	if !cfg.Headless {
		server := link.NewServer(cfg.LinkAddr, con, cfg.Link)
		g.Go(func() error {
			if err := server.Start(gctx); err != nil {
				return errors.Wrap(err, "console link error")
			}
			return nil
		})
	}

	if cfg.ReaderConfig.InputFile != "" {
		reader, err := worker.NewFileReaderWorker(con, cfg.ReaderConfig)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create script reader")
		}

		g.Go(func() error {
			err := reader.Start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "script reader error")
			}
			return nil
		})
	}

	if cfg.WriterConfig.OutputFile != "" {
		if !cfg.Headless {
			logger.WithField("file", cfg.WriterConfig.OutputFile).Warn("Transcript is only written in headless mode, ignoring")
		} else {
			writer, err := worker.NewFileWriterWorker(con, cfg.WriterConfig)
			if err != nil {
				logger.WithError(err).Fatal("Failed to create transcript writer")
			}
			defer writer.Close()

			g.Go(func() error {
				if err := writer.Start(gctx); err != nil {
					return errors.Wrap(err, "transcript writer error")
				}
				return nil
			})
		}
	}

	// Wait for signal or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received signal, shutting down...")
		cancel()
	case <-gctx.Done():
		logger.Info("context cancelled, shutting down workers...")
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Worker failed, shutting down...")
	} else {
		logger.Info("All workers completed successfully.")
	}

	con.Close()

	stats := counters.Snapshot()
	logger.WithFields(logrus.Fields{
		"allocs":      stats.Allocs,
		"releases":    stats.Releases,
		"failures":    stats.Failures,
		"outstanding": counters.Outstanding(),
	}).Info("Allocator summary")

	logger.Info("System shutting down")
}
