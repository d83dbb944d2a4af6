// Package queue is a small redis-list job queue for notification work.
// Jobs are pushed as JSON onto a list and consumed with blocking pops;
// failures are parked in a sorted set scored by their retry deadline and
// promoted back onto the list when due.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"citycar-backend/internal/logger"
)

// Job names understood by the notification workers.
const (
	JobLeaseConfirmation = "leaseConfirmationEmail"
	JobLeaseExtended     = "leaseExtendedEmail"
	JobLeaseReminder     = "leaseReminderEmail"
)

// Job is the unit of work carried on the queue.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job. A returned error schedules a retry until the
// attempt budget is spent.
type Handler func(ctx context.Context, job Job) error

// Options tunes queue behavior.
type Options struct {
	Name        string
	Workers     int
	MaxAttempts int
	// Backoff is the base delay; attempt n waits Backoff * 2^(n-1).
	Backoff time.Duration
}

// redisClient is the slice of the redis API the queue touches.
type redisClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

type Queue struct {
	client   redisClient
	opts     Options
	handlers map[string]Handler
	log      *slog.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

func New(client *redis.Client, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	return &Queue{
		client:   client,
		opts:     opts,
		handlers: make(map[string]Handler),
		log:      logger.WithService("queue"),
	}
}

func (q *Queue) listKey() string  { return q.opts.Name }
func (q *Queue) retryKey() string { return q.opts.Name + ":retry" }

// Register binds a handler to a job name. Must be called before Start.
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Enqueue pushes a new job. The payload is marshaled to JSON.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	job := Job{ID: uuid.NewString(), Name: name, Payload: raw}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.listKey(), data).Err()
}

// Start launches the worker pool and the retry promoter. It returns
// immediately; workers drain until ctx is canceled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.workerLoop(ctx)
		}()
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.promoteLoop(ctx)
	}()
}

// Wait blocks until all workers have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) workerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := q.client.BRPop(ctx, 5*time.Second, q.listKey()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("queue pop failed", "queue", q.listKey(), "error", err)
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			q.log.Error("dropping undecodable job", "queue", q.listKey(), "error", err)
			continue
		}
		q.process(ctx, job)
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Name]
	q.mu.Unlock()
	if !ok {
		q.log.Error("no handler for job", "job", job.Name, "id", job.ID)
		return
	}

	job.Attempts++
	if err := handler(ctx, job); err != nil {
		if job.Attempts >= q.opts.MaxAttempts {
			q.log.Error("job failed permanently",
				"job", job.Name, "id", job.ID, "attempts", job.Attempts, "error", err)
			return
		}
		delay := time.Duration(math.Pow(2, float64(job.Attempts-1))) * q.opts.Backoff
		q.log.Warn("job failed, scheduling retry",
			"job", job.Name, "id", job.ID, "attempt", job.Attempts, "delay", delay, "error", err)
		if err := q.park(ctx, job, time.Now().Add(delay)); err != nil {
			q.log.Error("failed to park job for retry", "id", job.ID, "error", err)
		}
		return
	}
	q.log.Debug("job completed", "job", job.Name, "id", job.ID, "attempts", job.Attempts)
}

func (q *Queue) park(ctx context.Context, job Job, due time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.retryKey(), redis.Z{
		Score:  float64(due.Unix()),
		Member: data,
	}).Err()
}

// promoteLoop ticks promoteDue until ctx is canceled.
func (q *Queue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		q.promoteDue(ctx)
	}
}

// promoteDue moves due retries from the sorted set back onto the list.
func (q *Queue) promoteDue(ctx context.Context) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	due, err := q.client.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.log.Error("retry scan failed", "error", err)
		}
		return
	}
	for _, member := range due {
		// Only the instance that wins the removal requeues the job.
		removed, err := q.client.ZRem(ctx, q.retryKey(), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.listKey(), member).Err(); err != nil {
			q.log.Error("failed to requeue retry", "error", err)
		}
	}
}
