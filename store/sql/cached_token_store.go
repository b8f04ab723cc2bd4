package sqlstore

import (
	"context"
	"fmt"
	"net/url"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/agrisetu/go-agriclient/core"
)

const tokenCacheKeyPrefix = "agriclient::session_token::v1"

// CachedTokenStore fronts a durable TokenStore with a read-through cache.
// Writes and clears invalidate the cached entry before touching the base
// store's result visibility.
type CachedTokenStore struct {
	base       core.TokenStore
	cache      repositorycache.CacheService
	sessionKey string
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService, sessionKey string) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	return &CachedTokenStore{
		base:       base,
		cache:      cacheService,
		sessionKey: sessionKey,
	}, nil
}

// TokenCacheKey is the deterministic cache key contract for session token
// reads: agriclient::session_token::v1::<session_key> with the session key
// URL-path escaped.
func TokenCacheKey(sessionKey string) string {
	return tokenCacheKeyPrefix + "::" + url.PathEscape(sessionKey)
}

func (s *CachedTokenStore) Get(ctx context.Context) (core.Credential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, TokenCacheKey(s.sessionKey), func(ctx context.Context) (core.Credential, error) {
		return s.base.Get(ctx)
	})
}

func (s *CachedTokenStore) Save(ctx context.Context, cred core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	if err := s.base.Save(ctx, cred); err != nil {
		return err
	}
	return s.cache.Delete(ctx, TokenCacheKey(s.sessionKey))
}

func (s *CachedTokenStore) Clear(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	return s.cache.Delete(ctx, TokenCacheKey(s.sessionKey))
}

var _ core.TokenStore = (*CachedTokenStore)(nil)
