package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/logger"
)

// Handler processes one delivered job. A nil return acknowledges the job; an
// error hands it back to the queue's retry machinery.
type Handler func(ctx context.Context, job Job) error

// ExhaustedFunc observes a job whose retry budget is spent, after it has been
// dead-lettered. The queue itself takes no further action on the job.
type ExhaustedFunc func(ctx context.Context, job Job, err error)

type ConsumerConfig struct {
	// MaxAttempts is the total number of handler invocations before a job is
	// dead-lettered.
	MaxAttempts  int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// Consumer pulls jobs from a Queue and dispatches them to a Handler. Each
// Consumer runs its handler inline, so one stuck job never blocks the others:
// run as many consumers as you want concurrent jobs.
type Consumer struct {
	q           *Queue
	cfg         ConsumerConfig
	handler     Handler
	onExhausted ExhaustedFunc
	logger      *slog.Logger
}

func NewConsumer(q *Queue, cfg ConsumerConfig, handler Handler, onExhausted ExhaustedFunc) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Consumer{
		q:           q,
		cfg:         cfg,
		handler:     handler,
		onExhausted: onExhausted,
		logger:      logger.WithComponent("queue-consumer").With("queue", q.name),
	}
}

// Reclaim moves deliveries stranded on the processing list (a worker died
// before acknowledging) back to pending. Call once at process startup,
// before Run.
func (c *Consumer) Reclaim(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := c.q.rdb.LMove(ctx, c.q.processingKey(), c.q.pendingKey(), "LEFT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			if moved > 0 {
				c.logger.Info("reclaimed stranded jobs", "count", moved)
			}
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// Run fetches and processes jobs until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		raw, err := c.q.rdb.LMove(ctx, c.q.pendingKey(), c.q.processingKey(), "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			c.sleep(ctx, c.cfg.PollInterval)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch job", "error", err)
			c.sleep(ctx, c.cfg.PollInterval)
			continue
		}

		c.deliver(ctx, raw)
	}
}

func (c *Consumer) deliver(ctx context.Context, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Undecodable payloads can never succeed; dead-letter them as-is.
		c.logger.Error("dropping undecodable job payload", "error", err)
		_ = c.q.rdb.LPush(ctx, c.q.deadKey(), raw).Err()
		c.ack(ctx, raw)
		return
	}

	log := c.logger.With("job_id", job.ID, "document_id", job.DocumentID, "attempt", job.Attempts+1)
	log.Info("job started")

	err := c.handler(ctx, job)
	if err == nil {
		c.ack(ctx, raw)
		log.Info("job completed")
		return
	}

	// Push the follow-up copy before removing the delivered entry: a crash
	// between the two leaves a duplicate on the lists, never nothing. The
	// claim row and the transactional chunk replace absorb the duplicate.
	c.retry(ctx, job, err, log)
	c.ack(ctx, raw)
}

// ack removes the delivered entry from the processing list.
func (c *Consumer) ack(ctx context.Context, raw string) {
	if err := c.q.rdb.LRem(ctx, c.q.processingKey(), 1, raw).Err(); err != nil {
		c.logger.Error("failed to acknowledge job", "error", err)
	}
}

func (c *Consumer) retry(ctx context.Context, job Job, cause error, log *slog.Logger) {
	job.Attempts++
	if job.Attempts >= c.cfg.MaxAttempts {
		log.Error("job failed, retries exhausted", "error", cause)
		if err := c.q.push(ctx, c.q.deadKey(), job); err != nil {
			log.Error("failed to dead-letter job", "error", err)
		}
		if c.onExhausted != nil {
			c.onExhausted(ctx, job, cause)
		}
		return
	}

	log.Warn("job failed, requeueing", "error", cause)
	if c.cfg.RetryDelay > 0 {
		c.sleep(ctx, c.cfg.RetryDelay)
	}
	if err := c.q.push(ctx, c.q.pendingKey(), job); err != nil {
		log.Error("failed to requeue job", "error", err)
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
