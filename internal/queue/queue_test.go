package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parkedEntry struct {
	member string
	due    time.Time
}

// fakeRedis records pushes and parked retries in memory.
type fakeRedis struct {
	mu     sync.Mutex
	pushed []string
	parked []parkedEntry
}

func memberString(v interface{}) string {
	switch m := v.(type) {
	case []byte:
		return string(m)
	case string:
		return m
	default:
		return ""
	}
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.pushed = append(f.pushed, memberString(v))
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(values)))
	return cmd
}

func (f *fakeRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		f.parked = append(f.parked, parkedEntry{
			member: memberString(m.Member),
			due:    time.Unix(int64(m.Score), 0),
		})
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedis) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	max, _ := strconv.ParseInt(opt.Max, 10, 64)
	var due []string
	for _, p := range f.parked {
		if p.due.Unix() <= max {
			due = append(due, p.member)
		}
	}
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(due)
	return cmd
}

func (f *fakeRedis) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, v := range members {
		target := memberString(v)
		for i, p := range f.parked {
			if p.member == target {
				f.parked = append(f.parked[:i], f.parked[i+1:]...)
				removed++
				break
			}
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func newTestQueue(fake *fakeRedis) *Queue {
	q := New(nil, Options{Name: "emailQueue", Workers: 1, MaxAttempts: 3, Backoff: 5 * time.Second})
	q.client = fake
	return q
}

func TestEnqueue(t *testing.T) {
	fake := &fakeRedis{}
	q := newTestQueue(fake)

	err := q.Enqueue(context.Background(), JobLeaseReminder, map[string]string{"to": "u@test.com"})
	require.NoError(t, err)
	require.Len(t, fake.pushed, 1)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(fake.pushed[0]), &job))
	assert.Equal(t, JobLeaseReminder, job.Name)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 0, job.Attempts)
	assert.JSONEq(t, `{"to":"u@test.com"}`, string(job.Payload))
}

func TestProcessRetriesWithExponentialBackoff(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{}
	q := newTestQueue(fake)
	q.Register("alwaysFails", func(context.Context, Job) error {
		return errors.New("smtp down")
	})

	job := Job{ID: "job-1", Name: "alwaysFails", Payload: json.RawMessage(`{}`)}

	// First failure parks with the base delay.
	before := time.Now()
	q.process(ctx, job)
	require.Len(t, fake.parked, 1)
	assert.WithinDuration(t, before.Add(5*time.Second), fake.parked[0].due, 2*time.Second)

	var retry Job
	require.NoError(t, json.Unmarshal([]byte(fake.parked[0].member), &retry))
	assert.Equal(t, 1, retry.Attempts)

	// Second failure doubles the delay.
	before = time.Now()
	q.process(ctx, retry)
	require.Len(t, fake.parked, 2)
	assert.WithinDuration(t, before.Add(10*time.Second), fake.parked[1].due, 2*time.Second)

	// Third failure exhausts the attempts; the job is dropped, not parked.
	require.NoError(t, json.Unmarshal([]byte(fake.parked[1].member), &retry))
	assert.Equal(t, 2, retry.Attempts)
	q.process(ctx, retry)
	assert.Len(t, fake.parked, 2)
	assert.Empty(t, fake.pushed)
}

func TestProcessSuccessDoesNotPark(t *testing.T) {
	fake := &fakeRedis{}
	q := newTestQueue(fake)

	var handled []string
	q.Register(JobLeaseConfirmation, func(_ context.Context, job Job) error {
		handled = append(handled, job.ID)
		return nil
	})

	q.process(context.Background(), Job{ID: "job-1", Name: JobLeaseConfirmation, Payload: json.RawMessage(`{}`)})
	assert.Equal(t, []string{"job-1"}, handled)
	assert.Empty(t, fake.parked)
}

func TestPromoteDueRequeuesOnlyDueRetries(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{}
	q := newTestQueue(fake)

	dueJob := Job{ID: "job-due", Name: JobLeaseReminder, Payload: json.RawMessage(`{}`), Attempts: 1}
	laterJob := Job{ID: "job-later", Name: JobLeaseReminder, Payload: json.RawMessage(`{}`), Attempts: 1}
	require.NoError(t, q.park(ctx, dueJob, time.Now().Add(-time.Minute)))
	require.NoError(t, q.park(ctx, laterJob, time.Now().Add(time.Hour)))

	q.promoteDue(ctx)

	require.Len(t, fake.pushed, 1)
	var promoted Job
	require.NoError(t, json.Unmarshal([]byte(fake.pushed[0]), &promoted))
	assert.Equal(t, "job-due", promoted.ID)

	// The not-yet-due job stays parked.
	require.Len(t, fake.parked, 1)
	var waiting Job
	require.NoError(t, json.Unmarshal([]byte(fake.parked[0].member), &waiting))
	assert.Equal(t, "job-later", waiting.ID)
}
