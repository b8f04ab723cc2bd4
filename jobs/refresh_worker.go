package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

const (
	JobIDTokenRefresh = "agriclient.token.refresh"

	defaultScheduleInterval   = time.Minute
	defaultWorkerMaxAttempts  = 3
	defaultWorkerInitialDelay = 500 * time.Millisecond
	defaultWorkerMaxDelay     = 10 * time.Second
)

// Refresher is the slice of the request client the worker drives. The
// client renews the credential only when it is inside the refresh lead
// window, so firing the job early is harmless.
type Refresher interface {
	RefreshAhead(ctx context.Context) (bool, error)
}

// Scheduler periodically enqueues token refresh jobs. The idempotency key
// buckets by interval so a redundant tick collapses onto the in-flight job.
type Scheduler struct {
	enqueuer core.JobEnqueuer
	interval time.Duration
	logger   core.Logger
	now      func() time.Time
}

type SchedulerOption func(*Scheduler)

func WithScheduleInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithSchedulerLogger(logger core.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(enqueuer core.JobEnqueuer, options ...SchedulerOption) (*Scheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("jobs: enqueuer is required")
	}
	scheduler := &Scheduler{
		enqueuer: enqueuer,
		interval: defaultScheduleInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(scheduler)
		}
	}
	return scheduler, nil
}

// EnqueueNow submits one refresh job immediately.
func (s *Scheduler) EnqueueNow(ctx context.Context) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("jobs: scheduler is not configured")
	}
	bucket := s.now().Truncate(s.interval).Unix()
	return s.enqueuer.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          JobIDTokenRefresh,
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDTokenRefresh, bucket),
		DedupPolicy:    "drop",
	})
}

// Run enqueues on every interval tick until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("jobs: scheduler is not configured")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.EnqueueNow(ctx); err != nil && s.logger != nil {
				s.logger.Error("token refresh enqueue failed", "error", err)
			}
		}
	}
}

// Worker drains refresh jobs and drives them through the client's
// single-flight refresh gate with bounded retries.
type Worker struct {
	dequeuer    core.JobDequeuer
	refresher   Refresher
	hook        core.JobWorkerHook
	logger      core.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	now         func() time.Time
}

type WorkerOption func(*Worker)

func WithWorkerHook(hook core.JobWorkerHook) WorkerOption {
	return func(w *Worker) {
		w.hook = hook
	}
}

func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithWorkerMaxAttempts(attempts int) WorkerOption {
	return func(w *Worker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

func WithWorkerBackoff(base time.Duration, max time.Duration) WorkerOption {
	return func(w *Worker) {
		if base > 0 {
			w.baseDelay = base
		}
		if max > 0 {
			w.maxDelay = max
		}
	}
}

func NewWorker(dequeuer core.JobDequeuer, refresher Refresher, options ...WorkerOption) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("jobs: dequeuer is required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("jobs: refresher is required")
	}
	worker := &Worker{
		dequeuer:    dequeuer,
		refresher:   refresher,
		maxAttempts: defaultWorkerMaxAttempts,
		baseDelay:   defaultWorkerInitialDelay,
		maxDelay:    defaultWorkerMaxDelay,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(worker)
		}
	}
	return worker, nil
}

// Run dequeues and processes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("jobs: worker is not configured")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.logger != nil {
				w.logger.Error("job dequeue failed", "error", err)
			}
			continue
		}
		w.Process(ctx, delivery)
	}
}

// Process runs one delivery to completion: ack on success or fatal auth
// failure (retrying a rejected refresh token cannot help), dead-letter
// when the retry budget is exhausted.
func (w *Worker) Process(ctx context.Context, delivery core.JobDelivery) {
	if w == nil || delivery == nil {
		return
	}
	msg := delivery.Message()
	startedAt := w.now()
	w.fireStart(ctx, msg, startedAt)

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		attempted, err := w.refresher.RefreshAhead(ctx)
		if err == nil {
			if err := delivery.Ack(ctx); err != nil && w.logger != nil {
				w.logger.Error("job ack failed", "error", err, "job_id", jobID(msg))
			}
			w.fireSuccess(ctx, msg, attempt, startedAt, attempted)
			return
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) {
			// The client has already cleared credentials and crossed the
			// session boundary; requeueing would just fail again.
			if ackErr := delivery.Ack(ctx); ackErr != nil && w.logger != nil {
				w.logger.Error("job ack failed", "error", ackErr, "job_id", jobID(msg))
			}
			w.fireFailure(ctx, msg, attempt, startedAt, err)
			return
		}
		if attempt == w.maxAttempts {
			break
		}

		delay := w.nextDelay(attempt)
		w.fireRetry(ctx, msg, attempt, delay, err)
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			lastErr = waitErr
			break
		}
	}

	nackErr := delivery.Nack(ctx, core.JobNackOptions{
		Requeue:    false,
		DeadLetter: true,
		Reason:     strings.TrimSpace(fmt.Sprint(lastErr)),
	})
	if nackErr != nil && w.logger != nil {
		w.logger.Error("job nack failed", "error", nackErr, "job_id", jobID(msg))
	}
	w.fireFailure(ctx, msg, w.maxAttempts, startedAt, lastErr)
}

func (w *Worker) nextDelay(attempt int) time.Duration {
	delay := w.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= w.maxDelay {
			return w.maxDelay
		}
	}
	if delay > w.maxDelay {
		return w.maxDelay
	}
	return delay
}

func (w *Worker) fireStart(ctx context.Context, msg *core.JobExecutionMessage, startedAt time.Time) {
	if w.hook == nil {
		return
	}
	w.hook.OnStart(ctx, core.JobWorkerEvent{Message: msg, Attempt: 1, StartedAt: startedAt})
}

func (w *Worker) fireSuccess(ctx context.Context, msg *core.JobExecutionMessage, attempt int, startedAt time.Time, attempted bool) {
	if w.logger != nil && attempted {
		w.logger.Info("proactive token refresh completed", "attempt", attempt)
	}
	if w.hook == nil {
		return
	}
	w.hook.OnSuccess(ctx, core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		StartedAt: startedAt,
		Duration:  w.now().Sub(startedAt),
	})
}

func (w *Worker) fireFailure(ctx context.Context, msg *core.JobExecutionMessage, attempt int, startedAt time.Time, err error) {
	if w.logger != nil {
		w.logger.Error("proactive token refresh failed", "error", err, "attempt", attempt)
	}
	if w.hook == nil {
		return
	}
	w.hook.OnFailure(ctx, core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		Err:       err,
		StartedAt: startedAt,
		Duration:  w.now().Sub(startedAt),
	})
}

func (w *Worker) fireRetry(ctx context.Context, msg *core.JobExecutionMessage, attempt int, delay time.Duration, err error) {
	if w.hook == nil {
		return
	}
	w.hook.OnRetry(ctx, core.JobWorkerEvent{Message: msg, Attempt: attempt, Delay: delay, Err: err})
}

func jobID(msg *core.JobExecutionMessage) string {
	if msg == nil {
		return ""
	}
	return msg.JobID
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "session expired") || strings.Contains(msg, "invalid refresh token")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
