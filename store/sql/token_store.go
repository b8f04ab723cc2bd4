// Package sqlstore persists session credentials in a relational database
// through bun. Tokens are versioned: saving rotates the active row instead
// of overwriting it.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/agrisetu/go-agriclient/core"
)

// TokenSessionStore manages versioned token rows keyed by session.
type TokenSessionStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

// SaveNewVersion revokes the session's active token and inserts the
// replacement with the next version, in one transaction.
func (s *TokenSessionStore) SaveNewVersion(ctx context.Context, sessionKey string, cred core.Credential) (core.Credential, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return core.Credential{}, fmt.Errorf("sqlstore: session key is required")
	}
	if !cred.HasAccessToken() {
		return core.Credential{}, fmt.Errorf("sqlstore: access token is required")
	}
	now := time.Now().UTC()

	var saved core.Credential
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, sessionKey)
		if versionErr != nil {
			return versionErr
		}

		_, updateErr := tx.NewUpdate().
			Model((*tokenRecord)(nil)).
			Set("status = ?", tokenStatusRevoked).
			Set("revocation_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("session_key = ?", sessionKey).
			Where("status = ?", tokenStatusActive).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}

		record := &tokenRecord{
			ID:           uuid.NewString(),
			SessionKey:   sessionKey,
			Version:      nextVersion,
			AccessToken:  strings.TrimSpace(cred.AccessToken),
			RefreshToken: strings.TrimSpace(cred.RefreshToken),
			Status:       tokenStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if cred.ExpiresAt != nil {
			expiresAt := cred.ExpiresAt.UTC()
			record.ExpiresAt = &expiresAt
		}
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		saved = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.Credential{}, err
	}
	return saved, nil
}

// GetActive returns the session's live credential, or core.ErrNoCredential
// when nothing is stored.
func (s *TokenSessionStore) GetActive(ctx context.Context, sessionKey string) (core.Credential, error) {
	if s == nil || s.repo == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("session_key", "=", strings.TrimSpace(sessionKey)),
		repository.SelectBy("status", "=", tokenStatusActive),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Credential{}, err
	}
	if len(records) == 0 {
		return core.Credential{}, core.ErrNoCredential
	}
	return records[0].toDomain(), nil
}

// RevokeActive marks the session's active token revoked with the given
// reason. Revoking an empty session is a no-op.
func (s *TokenSessionStore) RevokeActive(ctx context.Context, sessionKey string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return fmt.Errorf("sqlstore: session key is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	_, err := s.db.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("status = ?", tokenStatusRevoked).
		Set("revocation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("session_key = ?", sessionKey).
		Where("status = ?", tokenStatusActive).
		Exec(ctx)
	return err
}

func (s *TokenSessionStore) nextVersion(ctx context.Context, tx bun.Tx, sessionKey string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*tokenRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.session_key = ?", sessionKey).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// SessionTokenStore binds a TokenSessionStore to one session key, exposing
// the client pipeline's TokenStore contract.
type SessionTokenStore struct {
	sessions   *TokenSessionStore
	sessionKey string
}

func NewSessionTokenStore(sessions *TokenSessionStore, sessionKey string) (*SessionTokenStore, error) {
	if sessions == nil {
		return nil, fmt.Errorf("sqlstore: token session store is required")
	}
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, fmt.Errorf("sqlstore: session key is required")
	}
	return &SessionTokenStore{sessions: sessions, sessionKey: sessionKey}, nil
}

func (s *SessionTokenStore) Get(ctx context.Context) (core.Credential, error) {
	if s == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: session token store is not configured")
	}
	return s.sessions.GetActive(ctx, s.sessionKey)
}

func (s *SessionTokenStore) Save(ctx context.Context, cred core.Credential) error {
	if s == nil {
		return fmt.Errorf("sqlstore: session token store is not configured")
	}
	_, err := s.sessions.SaveNewVersion(ctx, s.sessionKey, cred)
	return err
}

func (s *SessionTokenStore) Clear(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("sqlstore: session token store is not configured")
	}
	return s.sessions.RevokeActive(ctx, s.sessionKey, "cleared")
}

var _ core.TokenStore = (*SessionTokenStore)(nil)
