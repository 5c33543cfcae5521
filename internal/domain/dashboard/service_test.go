package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	stats := &mocks.StatsRepository{}
	notes := &mocks.NotificationRepository{}
	svc := dashboard.NewService(stats, notification.NewService(notes, nil), nil)

	counts := dashboard.ProjectCounts{Total: 4, Active: 2, Completed: 1, Cancelled: 1}
	stats.On("ProjectCounts", ctx, "u1").Return(counts, nil)
	stats.On("CountActiveSteps", ctx, "u1").Return(1, nil)
	notes.On("CountUnread", ctx, "u1").Return(3, nil)

	got, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 4, got.Total)
	require.Equal(t, 2, got.Active)
	require.Equal(t, 1, got.MyActiveSteps)
	require.Equal(t, 3, got.UnreadNotifications)
	stats.AssertExpectations(t)
	notes.AssertExpectations(t)
}

func TestStatsRepoError(t *testing.T) {
	ctx := context.Background()
	stats := &mocks.StatsRepository{}
	svc := dashboard.NewService(stats, notification.NewService(&mocks.NotificationRepository{}, nil), nil)

	boom := errors.New("boom")
	stats.On("ProjectCounts", ctx, "u1").Return(dashboard.ProjectCounts{}, boom)

	_, err := svc.Stats(ctx, "u1")
	require.ErrorIs(t, err, boom)
}
