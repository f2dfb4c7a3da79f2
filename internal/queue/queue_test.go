package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "documents"), mr
}

func TestEnqueueDepth(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "doc-1", "uploads/doc-1.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)
}

func TestConsumerDeliversJob(t *testing.T) {
	q, _ := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Job, 1)
	c := NewConsumer(q, ConsumerConfig{PollInterval: 5 * time.Millisecond}, func(ctx context.Context, job Job) error {
		got <- job
		return nil
	}, nil)

	jobID, err := q.Enqueue(ctx, "doc-1", "uploads/doc-1.pdf")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() { defer close(done); _ = c.Run(ctx) }()

	select {
	case job := <-got:
		assert.Equal(t, jobID, job.ID)
		assert.Equal(t, "doc-1", job.DocumentID)
		assert.Equal(t, "uploads/doc-1.pdf", job.FilePath)
		assert.Zero(t, job.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}

	cancel()
	<-done

	// Acknowledged: nothing left on any list.
	depth, _ := q.Depth(context.Background())
	assert.Zero(t, depth)
	dead, _ := q.DeadCount(context.Background())
	assert.Zero(t, dead)
}

func TestConsumerDeliversInFIFOOrder(t *testing.T) {
	q, _ := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var order []string
	all := make(chan struct{})
	c := NewConsumer(q, ConsumerConfig{PollInterval: 5 * time.Millisecond}, func(ctx context.Context, job Job) error {
		mu.Lock()
		order = append(order, job.DocumentID)
		if len(order) == 3 {
			close(all)
		}
		mu.Unlock()
		return nil
	}, nil)

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := q.Enqueue(ctx, id, "uploads/"+id)
		require.NoError(t, err)
	}

	go func() { _ = c.Run(ctx) }()

	select {
	case <-all:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, order)
}

func TestConsumerRetriesFailedJob(t *testing.T) {
	q, _ := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var attempts []int
	succeeded := make(chan struct{})
	c := NewConsumer(q, ConsumerConfig{MaxAttempts: 3, PollInterval: 5 * time.Millisecond}, func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts = append(attempts, job.Attempts)
		n := len(attempts)
		mu.Unlock()
		if n < 3 {
			return errors.New("transient failure")
		}
		close(succeeded)
		return nil
	}, nil)

	_, err := q.Enqueue(ctx, "doc-1", "uploads/doc-1.pdf")
	require.NoError(t, err)

	go func() { _ = c.Run(ctx) }()

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, attempts)

	dead, _ := q.DeadCount(context.Background())
	assert.Zero(t, dead)
}

func TestConsumerDeadLettersExhaustedJob(t *testing.T) {
	q, _ := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exhausted := make(chan Job, 1)
	var calls int
	var mu sync.Mutex
	c := NewConsumer(q, ConsumerConfig{MaxAttempts: 2, PollInterval: 5 * time.Millisecond}, func(ctx context.Context, job Job) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("document is cursed")
	}, func(ctx context.Context, job Job, err error) {
		exhausted <- job
	})

	_, err := q.Enqueue(ctx, "doc-1", "uploads/doc-1.pdf")
	require.NoError(t, err)

	go func() { _ = c.Run(ctx) }()

	select {
	case job := <-exhausted:
		assert.Equal(t, "doc-1", job.DocumentID)
		assert.Equal(t, 2, job.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never exhausted")
	}

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()

	dead, _ := q.DeadCount(context.Background())
	assert.EqualValues(t, 1, dead)
	depth, _ := q.Depth(context.Background())
	assert.Zero(t, depth)
}

func TestFailedJobIsNeverOffAllLists(t *testing.T) {
	// A failed delivery must keep the job on at least one list at every
	// moment: the follow-up copy is pushed before the delivered entry is
	// acknowledged, so a crash between the two duplicates instead of losing.
	q, _ := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan struct{}, 4)
	c := NewConsumer(q, ConsumerConfig{
		MaxAttempts:  2,
		PollInterval: 5 * time.Millisecond,
		RetryDelay:   50 * time.Millisecond,
	}, func(ctx context.Context, job Job) error {
		delivered <- struct{}{}
		return errors.New("always fails")
	}, nil)

	_, err := q.Enqueue(ctx, "doc-1", "uploads/doc-1.pdf")
	require.NoError(t, err)

	go func() { _ = c.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	deliveries := 0
	for deliveries < 2 {
		select {
		case <-delivered:
			deliveries++
		case <-deadline:
			t.Fatal("job was not redelivered")
		default:
			total := int64(0)
			for _, key := range []string{q.pendingKey(), q.processingKey(), q.deadKey()} {
				n, err := q.rdb.LLen(context.Background(), key).Result()
				require.NoError(t, err)
				total += n
			}
			require.GreaterOrEqual(t, total, int64(1), "job vanished from every list")
			time.Sleep(time.Millisecond)
		}
	}

	require.Eventually(t, func() bool {
		dead, err := q.DeadCount(context.Background())
		return err == nil && dead == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConsumerDeadLettersUndecodablePayload(t *testing.T) {
	q, mr := testQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := mr.Lpush("documents:pending", "not json")
	require.NoError(t, err)

	handled := make(chan struct{}, 1)
	c := NewConsumer(q, ConsumerConfig{PollInterval: 5 * time.Millisecond}, func(ctx context.Context, job Job) error {
		handled <- struct{}{}
		return nil
	}, nil)

	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool {
		dead, err := q.DeadCount(context.Background())
		return err == nil && dead == 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-handled:
		t.Fatal("handler must not run for an undecodable payload")
	default:
	}
}

func TestReclaimMovesStrandedJobs(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	// Simulate a worker that died mid-job: entries sit on processing.
	for _, id := range []string{"doc-1", "doc-2"} {
		_, err := q.Enqueue(ctx, id, "uploads/"+id)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := q.rdb.LMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT").Result()
		require.NoError(t, err)
	}
	depth, _ := q.Depth(ctx)
	require.Zero(t, depth)

	c := NewConsumer(q, ConsumerConfig{}, func(ctx context.Context, job Job) error { return nil }, nil)
	moved, err := c.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	depth, _ = q.Depth(ctx)
	assert.EqualValues(t, 2, depth)
	processing, _ := q.rdb.LLen(ctx, q.processingKey()).Result()
	assert.Zero(t, processing)
}

func TestReclaimNoopOnEmptyProcessing(t *testing.T) {
	q, _ := testQueue(t)

	c := NewConsumer(q, ConsumerConfig{}, func(ctx context.Context, job Job) error { return nil }, nil)
	moved, err := c.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Zero(t, moved)
}
