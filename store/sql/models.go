package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/agrisetu/go-agriclient/core"
)

const (
	tokenStatusActive  = "active"
	tokenStatusRevoked = "revoked"
)

// tokenRecord is one version of a session's credential pair. Saving rotates:
// the previous active row is revoked and a new row with a higher version is
// inserted, so the token history stays auditable.
type tokenRecord struct {
	bun.BaseModel `bun:"table:client_tokens,alias:ct"`

	ID               string     `bun:"id,pk"`
	SessionKey       string     `bun:"session_key,notnull"`
	Version          int        `bun:"version,notnull"`
	AccessToken      string     `bun:"access_token,notnull"`
	RefreshToken     string     `bun:"refresh_token"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`
	Status           string     `bun:"status,notnull"`
	RevocationReason string     `bun:"revocation_reason"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *tokenRecord) toDomain() core.Credential {
	if r == nil {
		return core.Credential{}
	}
	cred := core.Credential{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresAt != nil {
		expiresAt := r.ExpiresAt.UTC()
		cred.ExpiresAt = &expiresAt
	}
	return cred
}
