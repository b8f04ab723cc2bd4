package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNoCredential    = errors.New("core: no stored credential")
	ErrSessionExpired  = errors.New("core: session expired")
	ErrRefreshRequired = errors.New("core: credential refresh required")
)

const (
	DefaultTokenExpiringSoonWindow = 5 * time.Minute
	DefaultTokenRefreshLeadWindow  = 5 * time.Minute
)

// Credential is the token pair authorizing API requests. The access token is
// attached as a bearer header on every call; the refresh token mints a new
// access token without re-authentication.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func (c Credential) HasAccessToken() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

func (c Credential) HasRefreshToken() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

// TokenState captures access/refresh lifecycle state derived from a credential.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanAutoRefresh  bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveTokenState evaluates expiry and refreshability flags for a credential.
func ResolveTokenState(now time.Time, cred Credential, expiringSoonWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultTokenExpiringSoonWindow
	}

	state := TokenState{
		HasAccessToken:  cred.HasAccessToken(),
		HasRefreshToken: cred.HasRefreshToken(),
		CanAutoRefresh:  cred.HasRefreshToken(),
	}
	if cred.ExpiresAt == nil {
		return state
	}
	expiresAt := cred.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldRefreshToken returns true when a refresh should be attempted before
// the access token starts failing with 401s.
func ShouldRefreshToken(now time.Time, state TokenState, refreshLeadWindow time.Duration) bool {
	if !state.CanAutoRefresh {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	if state.ExpiresAt == nil {
		return false
	}
	if refreshLeadWindow <= 0 {
		refreshLeadWindow = DefaultTokenRefreshLeadWindow
	}
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	return !state.ExpiresAt.UTC().After(now.Add(refreshLeadWindow))
}
