package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/printqa/backend/internal/config"
	"github.com/printqa/backend/internal/joblock"
	"github.com/printqa/backend/internal/queue"
	"github.com/printqa/backend/internal/storage"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"
	"github.com/printqa/backend/pkg/logger/console"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// jobTimeout bounds one analysis, including the time to finish after a
// shutdown signal.
const jobTimeout = 5 * time.Minute

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		JSON:   cfg.JSONLog,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Worker failed", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

func run(ctx context.Context, cfg config.Config) error {
	if cfg.Bucket == "" {
		return fmt.Errorf("AWS_BUCKET is required")
	}

	resultStore, closeStore, err := store.Open(ctx, cfg.Store, cfg.DatabaseURL, cfg.Migrate)
	if err != nil {
		return err
	}
	defer closeStore()

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		return err
	}

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		return err
	}

	// A single consumer channel with prefetch=1 delivers one message at a
	// time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	processor := &queue.Processor{
		Store:       resultStore,
		Objects:     storage.NewBucket(s3Client, cfg.Bucket),
		Publisher:   queue.NewChannelPublisher(ch),
		Analyzer:    analysis.NewAnalyzer(cfg.LoaderOptions()),
		Reporter:    testrail.NewReporter(cfg.TestRail),
		MaxFileSize: cfg.MaxUploadSize,
	}
	if pg, ok := resultStore.(*store.PostgresStore); ok {
		processor.Locker = joblock.New(pg.Pool(), joblock.Options{
			TTL:   joblock.DefaultTTL,
			Owner: "worker-",
		})
	} else {
		logger.Warn("Job locking disabled; run a single worker with the memory store")
	}

	logger.Info("Listening for messages", "queues", queue.Queues)

	g, gCtx := errgroup.WithContext(ctx)
	for _, queueName := range queue.Queues {
		msgs, err := consumerCh.Consume(
			queueName,
			queueName+"_consumer",
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
		}

		g.Go(func() error {
			return consume(gCtx, ch, processor, queueName, msgs)
		})
	}

	return g.Wait()
}

func consume(ctx context.Context, ch *amqp.Channel, p *queue.Processor, queueName string, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel for %s closed", queueName)
			}
			handle(ctx, ch, p, queueName, msg)
		}
	}
}

func handle(ctx context.Context, ch *amqp.Channel, p *queue.Processor, queueName string, msg amqp.Delivery) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queueName)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
	defer cancel()

	if err := p.ProcessAnalysisMessage(jobCtx, string(msg.Body)); err != nil {
		logger.Error("Error processing message", "queue", queueName, "err", err)
		queue.HandleProcessingError(jobCtx, ch, msg, queueName)
	} else {
		if err := msg.Ack(false); err != nil {
			logger.Error("Failed to ack message", "err", err)
		}
		logger.Info("Message processed successfully", "queue", queueName)
	}

	logger.Info("Processing time", "duration", util.FormatDuration(time.Since(startTime)))
}
