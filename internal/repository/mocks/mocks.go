package mocks

import (
	"context"

	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]project.Project, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActionRepository is a mock for action.Repository.
type ActionRepository struct {
	mock.Mock
}

func (m *ActionRepository) Append(ctx context.Context, entry *action.Action) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActionRepository) ListByProject(ctx context.Context, projectID string) ([]action.Action, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]action.Action); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActionRepository) Archive(ctx context.Context, rec *action.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ActionRepository) ListArchived(ctx context.Context, projectID string) ([]action.AuditRecord, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]action.AuditRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AssetRepository is a mock for asset.Repository.
type AssetRepository struct {
	mock.Mock
}

func (m *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AssetRepository) ListByProject(ctx context.Context, projectID string) ([]asset.Asset, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]asset.Asset); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AssetRepository) GetByPath(ctx context.Context, path string) (*asset.Asset, error) {
	args := m.Called(ctx, path)
	if a, ok := args.Get(0).(*asset.Asset); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) ListActive(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// NotificationRepository is a mock for notification.Repository.
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if n, ok := args.Get(0).(*notification.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if list, ok := args.Get(0).([]notification.Notification); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// StatsRepository is a mock for dashboard.Repository.
type StatsRepository struct {
	mock.Mock
}

func (m *StatsRepository) ProjectCounts(ctx context.Context, userID string) (dashboard.ProjectCounts, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(dashboard.ProjectCounts), args.Error(1)
}

func (m *StatsRepository) CountActiveSteps(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
