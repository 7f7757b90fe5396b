package auth

import (
	"context"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// The service depends on narrow store interfaces rather than the concrete
// MySQL repositories so that session and sweep logic can be exercised
// against in-memory fakes.  internal/repository provides the production
// implementations.

// UserStore persists user accounts.
type UserStore interface {
	// Create inserts a user and returns its id.  A duplicate email must
	// surface as ErrConflict.
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (model.User, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
	// Delete removes the user; associated refresh records are removed by
	// the store (foreign key cascade in MySQL).
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, offset, limit int) ([]model.User, error)
}

// TokenStore persists each user's refresh-token record list.  Absent rows
// are not errors: RemoveOne on a missing token is a no-op, which makes
// logout idempotent.
type TokenStore interface {
	Append(ctx context.Context, userID uint64, token string, createdAt time.Time) error
	// Contains reports exact string membership of token in the user's
	// record list.  This check, not cryptographic validity, is what
	// decides whether a refresh token is still live.
	Contains(ctx context.Context, userID uint64, token string) (bool, error)
	RemoveOne(ctx context.Context, userID uint64, token string) error
	RemoveAll(ctx context.Context, userID uint64) error
	ListForUser(ctx context.Context, userID uint64) ([]model.RefreshTokenRecord, error)
	// UsersWithTokens returns the ids of every user holding at least one
	// record, for the global sweep.
	UsersWithTokens(ctx context.Context) ([]uint64, error)
	RemoveByID(ctx context.Context, userID uint64, ids []uint64) (int, error)
	RemoveOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditSink receives activity events.  Implementations must never block
// the caller on delivery guarantees; errors are logged and swallowed by
// the service.
type AuditSink interface {
	Record(ctx context.Context, userID uint64, action string, success bool, detail string, meta Meta) error
}

// Meta carries request metadata attached to audit events.
type Meta struct {
	IP        string
	UserAgent string
}
