package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/stepflow/internal/domain/project"
)

// Service handles action log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new action log service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Append records an entry with the current timestamp if missing and returns its id.
func (s *Service) Append(ctx context.Context, entry *Action) (int64, error) {
	if entry == nil || strings.TrimSpace(entry.ProjectID) == "" || entry.Kind == "" {
		return 0, ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return 0, fmt.Errorf("%w: appending action: %v", project.ErrStorage, err)
	}
	return entry.ID, nil
}

// ListByProject replays a project's actions in the order they were written.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]Action, error) {
	entries, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return entries, nil
}

// Archive records an action that must outlive the project it refers to.
func (s *Service) Archive(ctx context.Context, rec *AuditRecord) error {
	if rec == nil || strings.TrimSpace(rec.ProjectID) == "" || rec.Kind == "" {
		return ErrInvalidInput
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Archive(ctx, rec); err != nil {
		return fmt.Errorf("%w: archiving action: %v", project.ErrStorage, err)
	}
	return nil
}

// ListArchived returns the audit records kept for a project, oldest first.
func (s *Service) ListArchived(ctx context.Context, projectID string) ([]AuditRecord, error) {
	records, err := s.repo.ListArchived(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing archived actions: %w", err)
	}
	return records, nil
}
