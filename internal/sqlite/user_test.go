package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/rpggio/stepflow/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &user.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.True(t, got.Active)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Conflict(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUsers(t, db, "alice")

	err := repo.Create(ctx, &user.User{
		ID:           "u2",
		Username:     "alice",
		Email:        "other@example.com",
		FullName:     "Other",
		PasswordHash: "x",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestUserRepository_ListActive(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUsers(t, db, "carol", "alice")

	_, err := db.Exec(`UPDATE users SET is_active = 0 WHERE id = 'carol'`)
	require.NoError(t, err)

	users, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].ID)
}
