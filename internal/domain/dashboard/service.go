package dashboard

import (
	"context"
	"fmt"
	"log/slog"
)

// Service derives dashboard stats from stored state.
type Service struct {
	repo          Repository
	notifications UnreadCounter
	logger        *slog.Logger
}

// NewService creates a new dashboard service.
func NewService(repo Repository, notifications UnreadCounter, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifications: notifications, logger: logger}
}

// Stats returns the summary for userID.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	counts, err := s.repo.ProjectCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}
	active, err := s.repo.CountActiveSteps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting active steps: %w", err)
	}
	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread notifications: %w", err)
	}
	return &Stats{
		ProjectCounts:       counts,
		MyActiveSteps:       active,
		UnreadNotifications: unread,
	}, nil
}
