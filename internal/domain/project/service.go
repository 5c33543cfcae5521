package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/stepflow/internal/repository"
)

// Service handles project read operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get fetches a project visible to the actor.
func (s *Service) Get(ctx context.Context, actorID, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	if !proj.CanView(actorID) {
		return nil, ErrNotAuthorized
	}
	return proj, nil
}

// List returns projects the actor owns or is assigned to, newest first.
func (s *Service) List(ctx context.Context, actorID string) ([]Project, error) {
	projects, err := s.repo.ListForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}
