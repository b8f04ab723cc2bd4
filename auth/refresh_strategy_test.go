package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type stubTransport struct {
	lastRequest core.TransportRequest
	response    core.TransportResponse
	err         error
}

func (t *stubTransport) Kind() string {
	return "stub"
}

func (t *stubTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	t.lastRequest = req
	if t.err != nil {
		return core.TransportResponse{}, t.err
	}
	return t.response, nil
}

func TestRefreshStrategyExchangesToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	transport := &stubTransport{
		response: core.TransportResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"access_token": "new-access", "refresh_token": "new-refresh", "expires_in": 3600}`),
		},
	}
	strategy := NewRefreshStrategy(transport, RefreshStrategyConfig{
		BaseURL: "http://localhost:8000",
		Now:     func() time.Time { return now },
	})

	cred, err := strategy.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if cred.AccessToken != "new-access" || cred.RefreshToken != "new-refresh" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.ExpiresAt == nil || !cred.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", cred.ExpiresAt)
	}

	if transport.lastRequest.URL != "http://localhost:8000/api/v1/auth/refresh" {
		t.Fatalf("unexpected refresh url %q", transport.lastRequest.URL)
	}
	var sent map[string]string
	if err := json.Unmarshal(transport.lastRequest.Body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["refresh_token"] != "old-refresh" {
		t.Fatalf("unexpected sent body: %v", sent)
	}
}

func TestRefreshStrategyRejectedTokenIsFatal(t *testing.T) {
	transport := &stubTransport{
		response: core.TransportResponse{
			StatusCode: http.StatusUnauthorized,
			Body:       []byte(`{"detail": "refresh token expired"}`),
		},
	}
	strategy := NewRefreshStrategy(transport, RefreshStrategyConfig{BaseURL: "http://localhost:8000"})

	_, err := strategy.Refresh(context.Background(), "stale")
	if err == nil {
		t.Fatalf("expected failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %s", richErr.Category)
	}
	if richErr.TextCode != core.ClientErrorSessionExpired {
		t.Fatalf("expected session-expired text code, got %s", richErr.TextCode)
	}
}

func TestRefreshStrategyNetworkFailure(t *testing.T) {
	transport := &stubTransport{err: errors.New("connection refused")}
	strategy := NewRefreshStrategy(transport, RefreshStrategyConfig{BaseURL: "http://localhost:8000"})

	_, err := strategy.Refresh(context.Background(), "refresh")
	if err == nil {
		t.Fatalf("expected failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryExternal {
		t.Fatalf("network failures must stay recoverable, got %s", richErr.Category)
	}
}

func TestRefreshStrategyRequiresToken(t *testing.T) {
	strategy := NewRefreshStrategy(&stubTransport{}, RefreshStrategyConfig{BaseURL: "http://localhost:8000"})
	if _, err := strategy.Refresh(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank refresh token")
	}
}

func TestRefreshStrategyRejectsEmptyAccessToken(t *testing.T) {
	transport := &stubTransport{
		response: core.TransportResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"access_token": ""}`),
		},
	}
	strategy := NewRefreshStrategy(transport, RefreshStrategyConfig{BaseURL: "http://localhost:8000"})

	if _, err := strategy.Refresh(context.Background(), "refresh"); err == nil {
		t.Fatalf("expected error for missing access token")
	}
}
