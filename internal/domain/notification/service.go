package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/repository"
)

// ListLimit caps how many notifications List returns.
const ListLimit = 50

// Service exposes a user's notifications.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new notification service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the user's newest notifications.
func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return items, nil
}

// MarkRead flips a notification to read. Only its recipient may do so.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("getting notification: %w", err)
	}
	if n.UserID != userID {
		return project.ErrNotAuthorized
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// UnreadCount returns how many notifications the user hasn't read.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
