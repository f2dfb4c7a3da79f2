// Package queue implements a durable, at-least-once job queue on Redis lists.
//
// Jobs are LPUSHed onto a pending list. A consumer LMOVEs the oldest entry
// onto a processing list, runs the handler, and removes the entry on
// acknowledge. Entries stranded on the processing list by a crashed worker
// are moved back to pending on consumer startup, which is what makes
// delivery at-least-once rather than at-most-once.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue is the producer half: it enqueues ingestion jobs for documents.
type Queue struct {
	rdb  *redis.Client
	name string
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func New(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) pendingKey() string    { return q.name + ":pending" }
func (q *Queue) processingKey() string { return q.name + ":processing" }
func (q *Queue) deadKey() string       { return q.name + ":dead" }

// Enqueue schedules a document for ingestion and returns the job id.
func (q *Queue) Enqueue(ctx context.Context, documentID, filePath string) (string, error) {
	job := Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		FilePath:   filePath,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, q.pendingKey(), job); err != nil {
		return "", fmt.Errorf("enqueue job for document %s: %w", documentID, err)
	}
	return job.ID, nil
}

// Depth returns the number of jobs waiting for delivery.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.pendingKey()).Result()
}

// DeadCount returns the number of jobs whose retry budget is exhausted.
func (q *Queue) DeadCount(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.deadKey()).Result()
}

func (q *Queue) push(ctx context.Context, key string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.LPush(ctx, key, data).Err()
}
