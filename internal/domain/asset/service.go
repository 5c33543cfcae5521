package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/repository"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Service stores uploaded files and their metadata.
type Service struct {
	repo   Repository
	blobs  BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new asset service.
func NewService(repo Repository, blobs BlobStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger, now: time.Now}
}

// Store writes file contents and returns unsaved asset records for them.
// On any failure the blobs already written are removed.
func (s *Service) Store(ctx context.Context, projectID, userID string, uploads []Upload) ([]Asset, error) {
	stamp := s.now().UTC()
	var stored []Asset
	for _, up := range uploads {
		name := SanitizeFilename(up.Filename)
		if name == "" || up.Body == nil {
			continue
		}
		id := uuid.NewString()
		path := fmt.Sprintf("%s_%s_%s_%s", projectID, stamp.Format("20060102_150405"), id[:8], name)
		size, err := s.blobs.Put(ctx, path, up.Body)
		if err != nil {
			s.Discard(ctx, stored)
			return nil, fmt.Errorf("%w: storing %s: %v", project.ErrStorage, name, err)
		}
		assetType := strings.TrimSpace(up.Type)
		if assetType == "" {
			assetType = TypeGeneral
		}
		stored = append(stored, Asset{
			ID:          id,
			ProjectID:   projectID,
			UploadedBy:  userID,
			Type:        assetType,
			Filename:    name,
			Path:        path,
			ContentType: up.ContentType,
			Size:        size,
			Metadata:    up.Metadata,
			UploadedAt:  stamp,
		})
	}
	if len(stored) == 0 {
		return nil, ErrNoFiles
	}
	return stored, nil
}

// Attach persists stored assets and links them to the action that produced them.
func (s *Service) Attach(ctx context.Context, actionID int64, assets []Asset) error {
	for i := range assets {
		id := actionID
		assets[i].ActionID = &id
		if err := s.repo.Create(ctx, &assets[i]); err != nil {
			return fmt.Errorf("%w: saving asset %s: %v", project.ErrStorage, assets[i].Filename, err)
		}
	}
	return nil
}

// Discard removes the blobs of assets whose transition didn't commit.
func (s *Service) Discard(ctx context.Context, assets []Asset) {
	for _, a := range assets {
		if err := s.blobs.Delete(ctx, a.Path); err != nil && s.logger != nil {
			s.logger.Warn("failed to discard asset blob", "path", a.Path, "error", err)
		}
	}
}

// ListByProject returns a project's assets, newest first.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]Asset, error) {
	assets, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return assets, nil
}

// Lookup finds the asset stored under path.
func (s *Service) Lookup(ctx context.Context, path string) (*Asset, error) {
	a, err := s.repo.GetByPath(ctx, path)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// Open streams an asset's contents.
func (s *Service) Open(ctx context.Context, a *Asset) (io.ReadCloser, error) {
	rc, err := s.blobs.Open(ctx, a.Path)
	if err != nil {
		return nil, fmt.Errorf("opening asset: %w", err)
	}
	return rc, nil
}

// SanitizeFilename strips directories and characters unsafe for a stored name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}
