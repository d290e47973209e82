package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftloop/mailcore/internal/domain"
)

func setupAdminMock(t *testing.T) (domain.AdminRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewAdminRepository(db), mock, func() { db.Close() }
}

func TestGetUserByEmailScansRole(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}).
		AddRow("u1", "owner@example.com", "hash", "owner", now)
	mock.ExpectQuery("SELECT id, email, password_hash, role, created_at FROM admin_users").
		WithArgs("owner@example.com").
		WillReturnRows(rows)

	u, err := repo.GetUserByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.AdminRoleOwner, u.Role)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, email, password_hash, role, created_at FROM admin_users").
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}))

	_, err := repo.GetUserByEmail(context.Background(), "missing@example.com")
	require.Error(t, err)
	_, ok := err.(*domain.ErrNotFound)
	assert.True(t, ok)
}

func TestGetSessionByTokenJoinsRole(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "token", "user_id", "role", "expires_at", "created_at"}).
		AddRow("s1", "tok", "u1", "admin", now.Add(time.Hour), now)
	mock.ExpectQuery("SELECT s.id, s.token, s.user_id, u.role, s.expires_at, s.created_at").
		WithArgs("tok").
		WillReturnRows(rows)

	s, err := repo.GetSessionByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, domain.AdminRoleAdmin, s.Role)
	assert.False(t, s.Expired(now))
}

func TestGetSessionByTokenUnknownReturnsNilNotError(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT s.id, s.token, s.user_id, u.role, s.expires_at, s.created_at").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "user_id", "role", "expires_at", "created_at"}))

	s, err := repo.GetSessionByToken(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestDeleteSession(t *testing.T) {
	repo, mock, cleanup := setupAdminMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM admin_sessions WHERE token = \\$1").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteSession(context.Background(), "tok")
	assert.NoError(t, err)
}
