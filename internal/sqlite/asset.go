package sqlite

import (
	"context"
	"database/sql"

	"github.com/rpggio/stepflow/internal/domain/asset"
)

// AssetRepository implements asset.Repository for SQLite
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new AssetRepository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `id, project_id, action_id, uploaded_by, asset_type, filename, file_path,
	content_type, size, metadata_assets, uploaded_at`

// Create inserts asset metadata
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.ProjectID,
		a.ActionID,
		a.UploadedBy,
		a.Type,
		a.Filename,
		a.Path,
		a.ContentType,
		a.Size,
		a.Metadata,
		a.UploadedAt,
	)
	return translate("create asset", err)
}

// ListByProject returns a project's assets, newest first
func (r *AssetRepository) ListByProject(ctx context.Context, projectID string) ([]asset.Asset, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE project_id = ?
		ORDER BY uploaded_at DESC, id
	`, projectID)
	if err != nil {
		return nil, translate("list assets", err)
	}
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate asset rows", err)
	}
	return assets, nil
}

// GetByPath retrieves an asset by its stored file name
func (r *AssetRepository) GetByPath(ctx context.Context, path string) (*asset.Asset, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE file_path = ?`, path)
	return scanAsset(row)
}

func scanAsset(s scanner) (*asset.Asset, error) {
	var a asset.Asset
	var actionID sql.NullInt64
	err := s.Scan(
		&a.ID,
		&a.ProjectID,
		&actionID,
		&a.UploadedBy,
		&a.Type,
		&a.Filename,
		&a.Path,
		&a.ContentType,
		&a.Size,
		&a.Metadata,
		&a.UploadedAt,
	)
	if err != nil {
		return nil, translate("scan asset", err)
	}
	if actionID.Valid {
		id := actionID.Int64
		a.ActionID = &id
	}
	return &a, nil
}
