package user_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/infra/logging"
	"github.com/mkrupp/accountdash/internal/repo/user"
)

func newPostgresRepo(t *testing.T) (*user.PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	return user.NewPostgresUserRepositoryWithDB(db, logging.NewNopLogger()), mock
}

func TestPostgresUserRepository_CreateUser(t *testing.T) {
	t.Parallel()

	insert := regexp.QuoteMeta("INSERT INTO users (username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, 0)")

	t.Run("inserts", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectExec(insert).
			WithArgs("alice", []byte("hash"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.CreateUser(context.Background(), "alice", []byte("hash")))
	})

	t.Run("unique violation", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectExec(insert).
			WithArgs("alice", []byte("hash"), sqlmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

		err := repo.CreateUser(context.Background(), "alice", []byte("hash"))
		require.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})
}

func TestPostgresUserRepository_GetUserByUsername(t *testing.T) {
	t.Parallel()

	query := regexp.QuoteMeta("SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = $1")

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(query).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "updated_at"}).
				AddRow(int64(7), "alice", []byte("hash"), int64(100), int64(0)))

		got, ok, err := repo.GetUserByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, &domain.User{ID: 7, Username: "alice", PasswordHash: []byte("hash"), CreatedAt: 100}, got)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(query).WithArgs("bob").WillReturnError(sql.ErrNoRows)

		_, ok, err := repo.GetUserByUsername(context.Background(), "bob")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.False(t, ok)
	})
}

func TestPostgresUserRepository_GetUserByID(t *testing.T) {
	t.Parallel()

	query := regexp.QuoteMeta("SELECT id, username, password_hash, created_at, updated_at FROM users WHERE id = $1")

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(query).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "updated_at"}).
				AddRow(int64(7), "alice", []byte("hash"), int64(100), int64(200)))

		got, ok, err := repo.GetUserByID(context.Background(), 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, &domain.User{ID: 7, Username: "alice", PasswordHash: []byte("hash"), CreatedAt: 100, UpdatedAt: 200}, got)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		repo, mock := newPostgresRepo(t)
		mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)

		_, ok, err := repo.GetUserByID(context.Background(), 8)
		require.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.False(t, ok)
	})
}

func TestPostgresUserRepository_UpdateUsername(t *testing.T) {
	t.Parallel()

	update := regexp.QuoteMeta("UPDATE users SET username = $1, updated_at = $2 WHERE username = $3")

	tests := []struct {
		name    string
		result  sql.Result
		err     error
		wantErr error
	}{
		{name: "renamed", result: sqlmock.NewResult(0, 1)},
		{name: "no such user", result: sqlmock.NewResult(0, 0), wantErr: domain.ErrUserNotFound},
		{name: "name taken", err: &pgconn.PgError{Code: "23505"}, wantErr: domain.ErrUserAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newPostgresRepo(t)
			exp := mock.ExpectExec(update).WithArgs("bob", sqlmock.AnyArg(), "alice")

			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.UpdateUsername(context.Background(), "alice", "bob")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestPostgresUserRepositoryConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := user.PostgresUserRepositoryConfig{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Password: "p@ss word",
		DBName:   "accounts",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://app:p%40ss%20word@db:5433/accounts?sslmode=disable", cfg.DSN())
}
