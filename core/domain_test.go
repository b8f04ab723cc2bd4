package core

import (
	"context"
	"testing"
	"time"
)

func TestResolveTokenState(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("no expiry", func(t *testing.T) {
		state := ResolveTokenState(now, Credential{AccessToken: "a", RefreshToken: "r"}, 0)
		if !state.HasAccessToken || !state.HasRefreshToken || !state.CanAutoRefresh {
			t.Fatalf("unexpected state: %+v", state)
		}
		if state.IsExpired || state.IsExpiringSoon {
			t.Fatalf("credential without expiry should not report expiry flags")
		}
	})

	t.Run("expired", func(t *testing.T) {
		expiresAt := now.Add(-time.Minute)
		state := ResolveTokenState(now, Credential{AccessToken: "a", ExpiresAt: &expiresAt}, 0)
		if !state.IsExpired {
			t.Fatalf("expected expired")
		}
		if state.IsExpiringSoon {
			t.Fatalf("expired credential should not also report expiring soon")
		}
	})

	t.Run("expiring soon", func(t *testing.T) {
		expiresAt := now.Add(2 * time.Minute)
		state := ResolveTokenState(now, Credential{AccessToken: "a", ExpiresAt: &expiresAt}, 5*time.Minute)
		if state.IsExpired {
			t.Fatalf("unexpected expired flag")
		}
		if !state.IsExpiringSoon {
			t.Fatalf("expected expiring soon within window")
		}
	})

	t.Run("fresh", func(t *testing.T) {
		expiresAt := now.Add(time.Hour)
		state := ResolveTokenState(now, Credential{AccessToken: "a", ExpiresAt: &expiresAt}, 5*time.Minute)
		if state.IsExpired || state.IsExpiringSoon {
			t.Fatalf("unexpected flags for fresh credential: %+v", state)
		}
	})
}

func TestShouldRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	soon := now.Add(2 * time.Minute)
	later := now.Add(time.Hour)

	cases := []struct {
		name string
		cred Credential
		want bool
	}{
		{name: "no refresh token", cred: Credential{AccessToken: "a", ExpiresAt: &soon}, want: false},
		{name: "missing access token", cred: Credential{RefreshToken: "r"}, want: true},
		{name: "inside lead window", cred: Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: &soon}, want: true},
		{name: "plenty of runway", cred: Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: &later}, want: false},
		{name: "no expiry known", cred: Credential{AccessToken: "a", RefreshToken: "r"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := ResolveTokenState(now, tc.cred, 5*time.Minute)
			if got := ShouldRefreshToken(now, state, 5*time.Minute); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMemoryTokenStoreRoundTrip(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	if _, err := store.Get(ctx); err != ErrNoCredential {
		t.Fatalf("expected ErrNoCredential on empty store, got %v", err)
	}

	cred := Credential{AccessToken: "a", RefreshToken: "r"}
	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AccessToken != cred.AccessToken || got.RefreshToken != cred.RefreshToken {
		t.Fatalf("unexpected credential: %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := store.Get(ctx); err != ErrNoCredential {
		t.Fatalf("expected ErrNoCredential after clear, got %v", err)
	}
}
