package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type memoryQueue struct {
	mu       sync.Mutex
	messages []*core.JobExecutionMessage
}

func (q *memoryQueue) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *memoryQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *memoryQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.messages))
	for _, msg := range q.messages {
		out = append(out, msg.IdempotencyKey)
	}
	return out
}

type fakeDelivery struct {
	msg    *core.JobExecutionMessage
	acks   int
	nacks  []core.JobNackOptions
	ackErr error
}

func (d *fakeDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *fakeDelivery) Ack(context.Context) error {
	d.acks++
	return d.ackErr
}

func (d *fakeDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacks = append(d.nacks, opts)
	return nil
}

type scriptedRefresher struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (r *scriptedRefresher) RefreshAhead(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.calls < len(r.results) {
		err = r.results[r.calls]
	}
	r.calls++
	return true, err
}

type recordingHook struct {
	mu        sync.Mutex
	starts    int
	successes int
	failures  int
	retries   int
}

func (h *recordingHook) OnStart(context.Context, core.JobWorkerEvent) {
	h.mu.Lock()
	h.starts++
	h.mu.Unlock()
}

func (h *recordingHook) OnSuccess(context.Context, core.JobWorkerEvent) {
	h.mu.Lock()
	h.successes++
	h.mu.Unlock()
}

func (h *recordingHook) OnFailure(context.Context, core.JobWorkerEvent) {
	h.mu.Lock()
	h.failures++
	h.mu.Unlock()
}

func (h *recordingHook) OnRetry(context.Context, core.JobWorkerEvent) {
	h.mu.Lock()
	h.retries++
	h.mu.Unlock()
}

func refreshDelivery() *fakeDelivery {
	return &fakeDelivery{msg: &core.JobExecutionMessage{JobID: JobIDTokenRefresh}}
}

func TestSchedulerEnqueueNowBucketsIdempotencyKey(t *testing.T) {
	queue := &memoryQueue{}
	fixed := time.Date(2026, 8, 28, 10, 30, 45, 0, time.UTC)
	scheduler, err := NewScheduler(queue,
		WithScheduleInterval(time.Minute),
		WithSchedulerClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("scheduler build failed: %v", err)
	}

	if err := scheduler.EnqueueNow(context.Background()); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := scheduler.EnqueueNow(context.Background()); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	keys := queue.keys()
	if len(keys) != 2 || keys[0] != keys[1] {
		t.Fatalf("expected identical keys within one bucket, got %v", keys)
	}
	if queue.messages[0].JobID != JobIDTokenRefresh {
		t.Fatalf("unexpected job id %q", queue.messages[0].JobID)
	}
}

func TestSchedulerRunEnqueuesOnTicks(t *testing.T) {
	queue := &memoryQueue{}
	scheduler, err := NewScheduler(queue, WithScheduleInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("scheduler build failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := scheduler.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if queue.size() == 0 {
		t.Fatalf("expected at least one enqueued job")
	}
}

func TestWorkerAcksOnSuccess(t *testing.T) {
	refresher := &scriptedRefresher{}
	hook := &recordingHook{}
	worker, err := NewWorker(nopDequeuer{}, refresher, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("worker build failed: %v", err)
	}

	delivery := refreshDelivery()
	worker.Process(context.Background(), delivery)

	if delivery.acks != 1 || len(delivery.nacks) != 0 {
		t.Fatalf("expected single ack, got acks=%d nacks=%d", delivery.acks, len(delivery.nacks))
	}
	if hook.starts != 1 || hook.successes != 1 || hook.failures != 0 {
		t.Fatalf("unexpected hook counts: %+v", hook)
	}
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	transient := goerrors.New("backend unavailable", goerrors.CategoryExternal)
	refresher := &scriptedRefresher{results: []error{transient, transient, nil}}
	hook := &recordingHook{}
	worker, err := NewWorker(nopDequeuer{}, refresher,
		WithWorkerHook(hook),
		WithWorkerBackoff(time.Millisecond, 4*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("worker build failed: %v", err)
	}

	delivery := refreshDelivery()
	worker.Process(context.Background(), delivery)

	if refresher.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", refresher.calls)
	}
	if delivery.acks != 1 || len(delivery.nacks) != 0 {
		t.Fatalf("expected ack after recovery, got acks=%d nacks=%d", delivery.acks, len(delivery.nacks))
	}
	if hook.retries != 2 || hook.successes != 1 {
		t.Fatalf("unexpected hook counts: %+v", hook)
	}
}

func TestWorkerDeadLettersOnExhaustion(t *testing.T) {
	transient := goerrors.New("backend unavailable", goerrors.CategoryExternal)
	refresher := &scriptedRefresher{results: []error{transient, transient, transient}}
	hook := &recordingHook{}
	worker, err := NewWorker(nopDequeuer{}, refresher,
		WithWorkerHook(hook),
		WithWorkerMaxAttempts(3),
		WithWorkerBackoff(time.Millisecond, 4*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("worker build failed: %v", err)
	}

	delivery := refreshDelivery()
	worker.Process(context.Background(), delivery)

	if delivery.acks != 0 || len(delivery.nacks) != 1 {
		t.Fatalf("expected dead-letter nack, got acks=%d nacks=%d", delivery.acks, len(delivery.nacks))
	}
	if !delivery.nacks[0].DeadLetter || delivery.nacks[0].Requeue {
		t.Fatalf("unexpected nack options: %+v", delivery.nacks[0])
	}
	if hook.failures != 1 {
		t.Fatalf("expected one failure event, got %d", hook.failures)
	}
}

func TestWorkerDoesNotRetryFatalAuthFailure(t *testing.T) {
	fatal := goerrors.New("session expired: token refresh rejected", goerrors.CategoryAuth)
	refresher := &scriptedRefresher{results: []error{fatal}}
	hook := &recordingHook{}
	worker, err := NewWorker(nopDequeuer{}, refresher, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("worker build failed: %v", err)
	}

	delivery := refreshDelivery()
	worker.Process(context.Background(), delivery)

	if refresher.calls != 1 {
		t.Fatalf("fatal failure must not be retried, got %d calls", refresher.calls)
	}
	if delivery.acks != 1 || len(delivery.nacks) != 0 {
		t.Fatalf("fatal failure is acked, got acks=%d nacks=%d", delivery.acks, len(delivery.nacks))
	}
	if hook.failures != 1 || hook.retries != 0 {
		t.Fatalf("unexpected hook counts: %+v", hook)
	}
}

func TestNextDelayDoublesAndCaps(t *testing.T) {
	worker, err := NewWorker(nopDequeuer{}, &scriptedRefresher{},
		WithWorkerBackoff(time.Second, 4*time.Second),
	)
	if err != nil {
		t.Fatalf("worker build failed: %v", err)
	}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 4 * time.Second},
	}
	for _, tc := range cases {
		if got := worker.nextDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

type nopDequeuer struct{}

func (nopDequeuer) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
