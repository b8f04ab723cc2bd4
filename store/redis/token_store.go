// Package redisstore keeps session credentials in Redis, for deployments
// where several dashboard processes share one login.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrisetu/go-agriclient/core"
)

const defaultKeyPrefix = "agriclient:token:"

type storedCredential struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// TokenStore persists the credential pair as a JSON value under a prefixed
// session key. When the credential carries an expiry, the key expires with
// the refresh token's useful life rather than the access token's, so a
// refresh stays possible after the access token lapses.
type TokenStore struct {
	client     *redis.Client
	prefix     string
	sessionKey string
	ttl        time.Duration
}

type Option func(*TokenStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *TokenStore) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL bounds how long a stored credential survives without rotation.
// Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *TokenStore) {
		s.ttl = ttl
	}
}

func NewTokenStore(client *redis.Client, sessionKey string, options ...Option) (*TokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, fmt.Errorf("redisstore: session key is required")
	}
	store := &TokenStore{
		client:     client,
		prefix:     defaultKeyPrefix,
		sessionKey: sessionKey,
	}
	for _, option := range options {
		if option != nil {
			option(store)
		}
	}
	return store, nil
}

func (s *TokenStore) Get(ctx context.Context) (core.Credential, error) {
	if s == nil || s.client == nil {
		return core.Credential{}, fmt.Errorf("redisstore: token store is not configured")
	}
	payload, err := s.client.Get(ctx, s.key()).Bytes()
	if err == redis.Nil {
		return core.Credential{}, core.ErrNoCredential
	}
	if err != nil {
		return core.Credential{}, fmt.Errorf("redisstore: read credential: %w", err)
	}

	var stored storedCredential
	if err := json.Unmarshal(payload, &stored); err != nil {
		return core.Credential{}, fmt.Errorf("redisstore: decode credential: %w", err)
	}
	cred := core.Credential{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
	}
	if stored.ExpiresAt != nil {
		expiresAt := stored.ExpiresAt.UTC()
		cred.ExpiresAt = &expiresAt
	}
	return cred, nil
}

func (s *TokenStore) Save(ctx context.Context, cred core.Credential) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: token store is not configured")
	}
	if !cred.HasAccessToken() {
		return fmt.Errorf("redisstore: access token is required")
	}

	stored := storedCredential{
		AccessToken:  strings.TrimSpace(cred.AccessToken),
		RefreshToken: strings.TrimSpace(cred.RefreshToken),
	}
	if cred.ExpiresAt != nil {
		expiresAt := cred.ExpiresAt.UTC()
		stored.ExpiresAt = &expiresAt
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("redisstore: encode credential: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: write credential: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: token store is not configured")
	}
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("redisstore: clear credential: %w", err)
	}
	return nil
}

func (s *TokenStore) key() string {
	return s.prefix + s.sessionKey
}

var _ core.TokenStore = (*TokenStore)(nil)
