package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rpggio/stepflow/internal/domain/action"
)

// ActionRepository implements action.Repository for SQLite
type ActionRepository struct {
	db *DB
}

// NewActionRepository creates a new ActionRepository
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Append inserts a new action entry and sets its ID
func (r *ActionRepository) Append(ctx context.Context, entry *action.Action) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO actions (
			project_id, user_id, step_id, step_number, action, comments, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		entry.ProjectID,
		entry.UserID,
		entry.StepID,
		entry.StepNumber,
		entry.Kind,
		entry.Comments,
		createdAt,
	)
	if err != nil {
		return translate("append action", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return translate("read action id", err)
	}
	entry.ID = id
	entry.CreatedAt = createdAt
	return nil
}

// ListByProject returns a project's actions oldest first, with the ids of assets each produced
func (r *ActionRepository) ListByProject(ctx context.Context, projectID string) ([]action.Action, error) {
	q := r.db.conn(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, user_id, step_id, step_number, action, comments, created_at
		FROM actions
		WHERE project_id = ?
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, translate("list actions", err)
	}

	var entries []action.Action
	index := make(map[int64]int)
	for rows.Next() {
		var entry action.Action
		var stepID sql.NullString
		var stepNumber sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&entry.ProjectID,
			&entry.UserID,
			&stepID,
			&stepNumber,
			&entry.Kind,
			&entry.Comments,
			&entry.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, translate("scan action", err)
		}
		if stepID.Valid {
			entry.StepID = &stepID.String
		}
		if stepNumber.Valid {
			n := int(stepNumber.Int64)
			entry.StepNumber = &n
		}
		index[entry.ID] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, translate("iterate action rows", err)
	}
	rows.Close()

	if len(entries) == 0 {
		return entries, nil
	}

	assetRows, err := q.QueryContext(ctx, `
		SELECT action_id, id
		FROM assets
		WHERE project_id = ? AND action_id IS NOT NULL
		ORDER BY uploaded_at, id
	`, projectID)
	if err != nil {
		return nil, translate("list action assets", err)
	}
	defer assetRows.Close()

	for assetRows.Next() {
		var actionID int64
		var assetID string
		if err := assetRows.Scan(&actionID, &assetID); err != nil {
			return nil, translate("scan action asset", err)
		}
		if i, ok := index[actionID]; ok {
			entries[i].AssetIDs = append(entries[i].AssetIDs, assetID)
		}
	}
	if err := assetRows.Err(); err != nil {
		return nil, translate("iterate action asset rows", err)
	}
	return entries, nil
}

// Archive inserts an audit record that has no foreign key to its project
func (r *ActionRepository) Archive(ctx context.Context, rec *action.AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO project_audit (project_id, project_name, user_id, action, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ProjectID,
		rec.ProjectName,
		rec.UserID,
		rec.Kind,
		rec.Comments,
		rec.CreatedAt,
	)
	if err != nil {
		return translate("archive action", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return translate("read audit id", err)
	}
	rec.ID = id
	return nil
}

// ListArchived returns the audit records kept for projectID, oldest first
func (r *ActionRepository) ListArchived(ctx context.Context, projectID string) ([]action.AuditRecord, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, project_id, project_name, user_id, action, comments, created_at
		FROM project_audit
		WHERE project_id = ?
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, translate("list archived actions", err)
	}
	defer rows.Close()

	var records []action.AuditRecord
	for rows.Next() {
		var rec action.AuditRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ProjectID,
			&rec.ProjectName,
			&rec.UserID,
			&rec.Kind,
			&rec.Comments,
			&rec.CreatedAt,
		); err != nil {
			return nil, translate("scan audit record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate audit rows", err)
	}
	return records, nil
}
