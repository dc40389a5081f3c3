package ports

import (
	"context"
	"time"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

// Store tracks refresh token IDs that can no longer be rotated
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// ConsumeToken atomically marks tokenID as used. It returns false when
	// the token had already been consumed or invalidated.
	ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error)
}

// CredentialStore persists identities. Implementations must enforce email
// uniqueness and return core.ErrDuplicateEmail when it is violated.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*core.Identity, error)
	FindByID(ctx context.Context, id string) (*core.Identity, error)
	Create(ctx context.Context, identity *core.Identity) (*core.Identity, error)
	Delete(ctx context.Context, id string) error
}
