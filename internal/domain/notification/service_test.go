package notification_test

import (
	"context"
	"testing"

	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/repository"
	"github.com/rpggio/stepflow/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestListUsesLimit(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil)

	items := []notification.Notification{{ID: "n1", UserID: "u1", Message: "hi"}}
	repo.On("ListByUser", ctx, "u1", notification.ListLimit).Return(items, nil)

	got, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, items, got)
	repo.AssertExpectations(t)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil)

	repo.On("Get", ctx, "n1").Return(&notification.Notification{ID: "n1", UserID: "u1"}, nil)
	repo.On("MarkRead", ctx, "n1").Return(nil).Once()

	require.NoError(t, svc.MarkRead(ctx, "u1", "n1"))
	repo.AssertExpectations(t)
}

func TestMarkReadAlreadyRead(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil)

	repo.On("Get", ctx, "n1").Return(&notification.Notification{ID: "n1", UserID: "u1", Read: true}, nil)

	require.NoError(t, svc.MarkRead(ctx, "u1", "n1"))
	repo.AssertNotCalled(t, "MarkRead", ctx, "n1")
}

func TestMarkReadOtherUser(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil)

	repo.On("Get", ctx, "n1").Return(&notification.Notification{ID: "n1", UserID: "u1"}, nil)

	err := svc.MarkRead(ctx, "u2", "n1")
	require.ErrorIs(t, err, project.ErrNotAuthorized)
	repo.AssertNotCalled(t, "MarkRead", ctx, "n1")
}

func TestMarkReadNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	svc := notification.NewService(repo, nil)

	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	err := svc.MarkRead(ctx, "u1", "missing")
	require.ErrorIs(t, err, notification.ErrNotificationNotFound)
}
