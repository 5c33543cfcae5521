package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAssetRepository(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectRepository(db)
	repo := NewAssetRepository(db)
	ctx := context.Background()
	seedUsers(t, db, "owner", "alice")
	require.NoError(t, projects.Create(ctx, newTestProject("p1", "owner", "alice")))

	now := time.Now().UTC()
	older := &asset.Asset{
		ID: "a1", ProjectID: "p1", UploadedBy: "alice", Type: asset.TypeGeneral,
		Filename: "one.txt", Path: "p1_one.txt", ContentType: "text/plain", Size: 3, UploadedAt: now,
	}
	newer := &asset.Asset{
		ID: "a2", ProjectID: "p1", UploadedBy: "owner", Type: "brief",
		Filename: "two.pdf", Path: "p1_two.pdf", Metadata: `{"pages":2}`, UploadedAt: now.Add(time.Second),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	list, err := repo.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a2", list[0].ID)
	require.Nil(t, list[0].ActionID)
	require.Equal(t, `{"pages":2}`, list[0].Metadata)

	got, err := repo.GetByPath(ctx, "p1_one.txt")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)
	require.EqualValues(t, 3, got.Size)

	_, err = repo.GetByPath(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	dup := *older
	dup.ID = "a3"
	require.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrConflict)
}
