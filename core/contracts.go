package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TokenStore is the durable credential storage boundary. Get returns
// ErrNoCredential when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context) (Credential, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// RequestSanitizer neutralizes script-capable values in outbound bodies.
// Implementations receive enough request shape to decide whether the body
// should be touched at all.
type RequestSanitizer interface {
	SanitizeBody(method string, path string, contentType string, body []byte) ([]byte, error)
}

// TokenRefresher exchanges a refresh token for a new credential pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credential, error)
}

// SessionBoundary is invoked exactly once per fatal authentication failure
// (missing or rejected refresh token), after stored credentials have been
// cleared. It is the SDK analogue of a redirect to the login screen.
type SessionBoundary func(ctx context.Context, cause error)

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
