package core

import (
	"context"
	"sync"
)

// RefreshOutcome is what every caller parked on the gate observes once the
// single in-flight refresh settles.
type RefreshOutcome struct {
	Credential Credential
	Err        error
}

// RefreshGate serializes token renewal: the first caller to observe an auth
// failure becomes the leader and performs the refresh; every concurrent
// caller enqueues and is served by that one outcome. The check-and-set of
// the in-flight flag and the waiter enqueue happen under one mutex so the
// invariant holds under true parallelism, not just cooperative scheduling.
//
// The gate is an owned state object: independent clients hold independent
// gates, so tests can run clients in parallel without cross-talk.
type RefreshGate struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan RefreshOutcome
}

func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// Begin claims the refresh or enqueues the caller behind the in-flight one.
// When leader is true the caller must perform the refresh and call Finish;
// otherwise wait delivers the outcome of the leader's refresh.
func (g *RefreshGate) Begin() (leader bool, wait <-chan RefreshOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.inFlight {
		g.inFlight = true
		return true, nil
	}
	ch := make(chan RefreshOutcome, 1)
	g.waiters = append(g.waiters, ch)
	return false, ch
}

// Finish publishes the refresh outcome to every queued waiter in enqueue
// order and resets the gate. Called exactly once per Begin that returned
// leader=true, on success and failure alike.
func (g *RefreshGate) Finish(outcome RefreshOutcome) {
	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.inFlight = false
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome
	}
}

// Waiting reports the number of callers parked behind the in-flight refresh.
func (g *RefreshGate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// InFlight reports whether a refresh is currently being performed.
func (g *RefreshGate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Await blocks until the outcome arrives or the context is done.
func Await(ctx context.Context, wait <-chan RefreshOutcome) (RefreshOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return RefreshOutcome{}, ctx.Err()
	case outcome := <-wait:
		return outcome, nil
	}
}
