package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/app"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/config"
	db "github.com/ShivamJuyal24/AI-Chat-PDF/internal/core/database"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core/llm"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/ingest"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/logger"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/metrics"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/queue"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbClient.Close()

	files, err := app.NewFileStore(ctx, cfg)
	if err != nil {
		log.Fatalf("file store: %v", err)
	}

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	defer embedder.Close()

	extractor := ingest.NewDocconvExtractor(false)

	worker, err := ingest.NewWorker(dbClient, files, extractor, embedder, ingest.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbedRPS:     cfg.EmbedRPS,
	})
	if err != nil {
		// Bad size/overlap pairs must never reach the queue.
		log.Fatalf("worker: %v", err)
	}

	rdb, err := queue.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	q := queue.New(rdb, cfg.QueueName)

	handler := func(ctx context.Context, job queue.Job) error {
		start := time.Now()
		res, err := worker.Process(ctx, job)
		metrics.JobDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.JobsProcessed.WithLabelValues("failed").Inc()
			return err
		}
		if !res.Claimed {
			metrics.JobsProcessed.WithLabelValues("skipped").Inc()
			return nil
		}
		metrics.JobsProcessed.WithLabelValues("completed").Inc()
		metrics.ChunksInserted.Add(float64(res.ChunksInserted))
		return nil
	}

	// Once the queue gives up on a job, the uploader must see "failed".
	onExhausted := func(ctx context.Context, job queue.Job, cause error) {
		if err := dbClient.MarkDocumentFailed(ctx, job.DocumentID); err != nil {
			slog.Error("failed to mark document failed", "document_id", job.DocumentID, "error", err)
		}
	}

	consumerCfg := queue.ConsumerConfig{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  2 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	bootstrap := queue.NewConsumer(q, consumerCfg, handler, onExhausted)
	if _, err := bootstrap.Reclaim(ctx); err != nil {
		log.Fatalf("reclaim: %v", err)
	}
	g.Go(func() error { return bootstrap.Run(gctx) })
	for i := 1; i < cfg.WorkerCount; i++ {
		c := queue.NewConsumer(q, consumerCfg, handler, onExhausted)
		g.Go(func() error { return c.Run(gctx) })
	}

	// Queue depth gauge.
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if depth, err := q.Depth(gctx); err == nil {
					metrics.QueueDepth.Set(float64(depth))
				}
			}
		}
	})

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler()}
	g.Go(func() error {
		slog.Info("metrics server listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	slog.Info("ingestion worker running", "consumers", cfg.WorkerCount, "queue", cfg.QueueName)
	if err := g.Wait(); err != nil {
		slog.Error("worker exited with error", "error", err)
	}
}
