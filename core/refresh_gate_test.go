package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRefreshGateSingleLeader(t *testing.T) {
	gate := NewRefreshGate()

	leader, wait := gate.Begin()
	if !leader {
		t.Fatalf("expected first caller to lead")
	}
	if wait != nil {
		t.Fatalf("leader should not receive a wait channel")
	}
	if !gate.InFlight() {
		t.Fatalf("expected gate to report in-flight")
	}

	follower, followerWait := gate.Begin()
	if follower {
		t.Fatalf("expected second caller to enqueue")
	}
	if followerWait == nil {
		t.Fatalf("expected follower wait channel")
	}
	if got := gate.Waiting(); got != 1 {
		t.Fatalf("expected 1 waiter, got %d", got)
	}

	want := Credential{AccessToken: "renewed"}
	gate.Finish(RefreshOutcome{Credential: want})

	outcome, err := Await(context.Background(), followerWait)
	if err != nil {
		t.Fatalf("await failed: %v", err)
	}
	if outcome.Err != nil {
		t.Fatalf("unexpected outcome error: %v", outcome.Err)
	}
	if outcome.Credential.AccessToken != want.AccessToken {
		t.Fatalf("expected access token %q, got %q", want.AccessToken, outcome.Credential.AccessToken)
	}
	if gate.InFlight() {
		t.Fatalf("expected gate reset after finish")
	}
}

func TestRefreshGateFanOutServesEveryWaiter(t *testing.T) {
	gate := NewRefreshGate()
	if leader, _ := gate.Begin(); !leader {
		t.Fatalf("expected leader")
	}

	const waiters = 16
	waits := make([]<-chan RefreshOutcome, 0, waiters)
	for i := 0; i < waiters; i++ {
		leader, wait := gate.Begin()
		if leader {
			t.Fatalf("waiter %d unexpectedly became leader", i)
		}
		waits = append(waits, wait)
	}

	failure := errors.New("refresh rejected")
	gate.Finish(RefreshOutcome{Err: failure})

	for i, wait := range waits {
		outcome, err := Await(context.Background(), wait)
		if err != nil {
			t.Fatalf("waiter %d await failed: %v", i, err)
		}
		if !errors.Is(outcome.Err, failure) {
			t.Fatalf("waiter %d expected the leader's failure, got %v", i, outcome.Err)
		}
	}
}

func TestRefreshGateNewRoundAfterFinish(t *testing.T) {
	gate := NewRefreshGate()

	leader, _ := gate.Begin()
	if !leader {
		t.Fatalf("expected leader in round one")
	}
	gate.Finish(RefreshOutcome{Credential: Credential{AccessToken: "one"}})

	leader, _ = gate.Begin()
	if !leader {
		t.Fatalf("expected fresh leadership after finish")
	}
	gate.Finish(RefreshOutcome{Credential: Credential{AccessToken: "two"}})
}

func TestRefreshGateConcurrentBeginPicksOneLeader(t *testing.T) {
	gate := NewRefreshGate()

	const callers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	leaders := 0
	waits := make([]<-chan RefreshOutcome, 0, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			leader, wait := gate.Begin()
			mu.Lock()
			defer mu.Unlock()
			if leader {
				leaders++
				return
			}
			waits = append(waits, wait)
		}()
	}
	wg.Wait()

	if leaders != 1 {
		t.Fatalf("expected exactly one leader, got %d", leaders)
	}
	gate.Finish(RefreshOutcome{Credential: Credential{AccessToken: "renewed"}})
	for _, wait := range waits {
		select {
		case outcome := <-wait:
			if outcome.Credential.AccessToken != "renewed" {
				t.Fatalf("unexpected outcome credential %q", outcome.Credential.AccessToken)
			}
		case <-time.After(time.Second):
			t.Fatalf("waiter never served")
		}
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	gate := NewRefreshGate()
	if leader, _ := gate.Begin(); !leader {
		t.Fatalf("expected leader")
	}
	_, wait := gate.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Await(ctx, wait); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	gate.Finish(RefreshOutcome{})
}
