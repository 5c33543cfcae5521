package sqlite

import (
	"context"

	"github.com/rpggio/stepflow/internal/domain/dashboard"
)

// StatsRepository implements dashboard.Repository for SQLite
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// ProjectCounts tallies projects userID owns or is assigned to, each once
func (r *StatsRepository) ProjectCounts(ctx context.Context, userID string) (dashboard.ProjectCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN p.status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = 'cancelled' THEN 1 ELSE 0 END), 0)
		FROM projects p
		WHERE p.owner_id = ?
		   OR EXISTS (SELECT 1 FROM steps s WHERE s.project_id = p.id AND s.assigned_user_id = ?)
	`
	var counts dashboard.ProjectCounts
	err := r.db.conn(ctx).QueryRowContext(ctx, query, userID, userID).Scan(
		&counts.Total,
		&counts.Active,
		&counts.Completed,
		&counts.Cancelled,
	)
	if err != nil {
		return dashboard.ProjectCounts{}, translate("count projects", err)
	}
	return counts, nil
}

// CountActiveSteps counts in-progress steps assigned to userID
func (r *StatsRepository) CountActiveSteps(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM steps WHERE assigned_user_id = ? AND status = 'in_progress'`, userID).Scan(&count)
	if err != nil {
		return 0, translate("count active steps", err)
	}
	return count, nil
}
