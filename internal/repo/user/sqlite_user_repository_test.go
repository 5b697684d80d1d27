package user_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/repo/user"
)

func newSQLiteRepo(t *testing.T) *user.SQLiteUserRepository {
	t.Helper()

	repo, err := user.NewSQLiteUserRepository(context.Background(), user.SQLiteUserRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestSQLiteUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newSQLiteRepo(t)

	require.NoError(t, repo.CreateUser(ctx, "alice", []byte("hash")))

	got, ok, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []byte("hash"), got.PasswordHash)
	assert.NotZero(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
	assert.Zero(t, got.UpdatedAt)

	byID, ok, err := repo.GetUserByID(ctx, got.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, byID)

	_, ok, err = repo.GetUserByID(ctx, got.ID+100)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.False(t, ok)

	err = repo.CreateUser(ctx, "alice", []byte("other"))
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, ok, err = repo.GetUserByUsername(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.False(t, ok)
}

func TestSQLiteUserRepository_UpdateUsername(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newSQLiteRepo(t)

	require.NoError(t, repo.CreateUser(ctx, "alice", []byte("hash-a")))
	require.NoError(t, repo.CreateUser(ctx, "carol", []byte("hash-c")))

	tests := []struct {
		name    string
		current string
		next    string
		wantErr error
	}{
		{name: "renames user", current: "alice", next: "alice2"},
		{name: "target taken", current: "alice2", next: "carol", wantErr: domain.ErrUserAlreadyExists},
		{name: "unknown user", current: "nobody", next: "someone", wantErr: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.UpdateUsername(ctx, tt.current, tt.next)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}

	renamed, ok, err := repo.GetUserByUsername(ctx, "alice2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hash-a"), renamed.PasswordHash)
	assert.NotZero(t, renamed.UpdatedAt)

	_, _, err = repo.GetUserByUsername(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	// the id survives a rename; a new account under the old name gets a new one
	require.NoError(t, repo.CreateUser(ctx, "alice", []byte("hash-new")))

	reused, _, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, renamed.ID, reused.ID)

	byID, _, err := repo.GetUserByID(ctx, renamed.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", byID.Username)
}

func TestSQLiteUserRepository_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := user.SQLiteUserRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "users.db")}

	repo, err := user.NewSQLiteUserRepository(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, repo.CreateUser(ctx, "alice", []byte("hash")))
	require.NoError(t, repo.Close())

	repo, err = user.NewSQLiteUserRepository(ctx, cfg)
	require.NoError(t, err)

	defer repo.Close()

	_, ok, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepositoryFactoryFromConfig(t *testing.T) {
	t.Parallel()

	_, err := user.RepositoryFactoryFromConfig(user.RepositoryConfig{Driver: "mongo"})
	require.ErrorIs(t, err, user.ErrUnknownDriver)

	factory, err := user.RepositoryFactoryFromConfig(user.RepositoryConfig{
		Driver: "sqlite",
		SQLite: user.SQLiteUserRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "users.db")},
	})
	require.NoError(t, err)

	repo, err := factory(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}
