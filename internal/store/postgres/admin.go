package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
)

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) domain.AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) GetUserByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash, role, created_at FROM admin_users WHERE email = $1`, email)

	var u domain.AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "admin_user", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user by email: %w", err)
	}
	return &u, nil
}

func (r *adminRepository) CreateSession(ctx context.Context, s *domain.AdminSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (id, token, user_id, expires_at, created_at) VALUES ($1,$2,$3,$4,$5)
	`, s.ID, s.Token, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	return nil
}

// GetSessionByToken joins through to admin_users so the returned session
// carries its owner's current role (spec.md §6's role ∈ {owner, admin}
// check), not just what the role was at login time.
func (r *adminRepository) GetSessionByToken(ctx context.Context, token string) (*domain.AdminSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.token, s.user_id, u.role, s.expires_at, s.created_at
		FROM admin_sessions s JOIN admin_users u ON u.id = s.user_id
		WHERE s.token = $1
	`, token)

	var s domain.AdminSession
	err := row.Scan(&s.ID, &s.Token, &s.UserID, &s.Role, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin session by token: %w", err)
	}
	return &s, nil
}

func (r *adminRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func (r *adminRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, now); err != nil {
		return fmt.Errorf("delete expired admin sessions: %w", err)
	}
	return nil
}
