package domain

import (
	"context"
	"time"
)

// AdminRole is an AdminUser's authorization level (spec.md §6): only
// owner and admin may pass the session-cookie auth path.
type AdminRole string

const (
	AdminRoleOwner AdminRole = "owner"
	AdminRoleAdmin AdminRole = "admin"
)

func (r AdminRole) Valid() bool {
	return r == AdminRoleOwner || r == AdminRoleAdmin
}

// AdminUser is an operator of the admin HTTP surface (SPEC_FULL.md
// expansion: the distilled spec names a single static API key, this
// supplements it with session-based login for the dashboard UI).
type AdminUser struct {
	ID           string
	Email        string
	PasswordHash string
	Role         AdminRole
	CreatedAt    time.Time
}

func (u *AdminUser) Validate() error {
	if u.Email == "" {
		return NewValidationError("email is required")
	}
	if u.PasswordHash == "" {
		return NewValidationError("password_hash is required")
	}
	if !u.Role.Valid() {
		return NewValidationError("role must be one of owner, admin")
	}
	return nil
}

// AdminSession is an opaque, bearer-token session minted on login and
// presented as a cookie by the dashboard UI. Tokens are random, never
// JWTs: there is no claim payload worth signing, just an opaque lookup
// key (pkg/crypto.RandomToken).
type AdminSession struct {
	ID        string
	Token     string
	UserID    string
	// Role is the session owner's AdminUser.Role, denormalized onto the
	// session lookup (joined in at read time, not its own column) so the
	// auth boundary can enforce spec.md §6's role ∈ {owner, admin} check
	// without a second round trip.
	Role      AdminRole
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *AdminSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AdminRepository is the Store's admin-user and session surface.
type AdminRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*AdminUser, error)
	CreateSession(ctx context.Context, s *AdminSession) error
	// GetSessionByToken returns nil, nil for an unknown token (spec.md §9
	// style: absence is not an error at the lookup layer, callers decide).
	GetSessionByToken(ctx context.Context, token string) (*AdminSession, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}
