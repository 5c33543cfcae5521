package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/repository"
)

// ProjectRepository stores projects and their steps in SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, project_name, description, owner_id, status, current_step_number, created_at, updated_at`

// Create inserts a project with all of its steps. Callers wanting atomicity run it inside DB.WithinTx.
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	q := r.db.conn(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		proj.ID,
		proj.Name,
		proj.Description,
		proj.OwnerID,
		proj.Status,
		proj.CurrentStepNumber,
		proj.CreatedAt,
		proj.UpdatedAt,
	)
	if err != nil {
		return translate("create project", err)
	}

	for _, step := range proj.Steps {
		_, err := q.ExecContext(ctx, `
			INSERT INTO steps (
				id, project_id, step_number, step_name, task_description,
				assigned_user_id, status, completed_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			step.ID,
			proj.ID,
			step.StepNumber,
			step.Name,
			step.TaskDescription,
			step.AssignedUserID,
			step.Status,
			step.CompletedAt,
			step.CreatedAt,
		)
		if err != nil {
			return translate(fmt.Sprintf("create step %d", step.StepNumber), err)
		}
	}
	return nil
}

// Get retrieves a project by ID with its steps in execution order
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	if proj.Steps, err = r.steps(ctx, proj.ID); err != nil {
		return nil, err
	}
	return proj, nil
}

// ListForUser returns projects userID owns or has a step in, newest first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects p
		WHERE p.owner_id = ?
		   OR EXISTS (SELECT 1 FROM steps s WHERE s.project_id = p.id AND s.assigned_user_id = ?)
		ORDER BY p.created_at DESC, p.id
	`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, translate("list projects", err)
	}

	var projects []project.Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, translate("iterate project rows", err)
	}
	rows.Close()

	// Steps are loaded after the cursor closes; the pool has a single connection.
	for i := range projects {
		if projects[i].Steps, err = r.steps(ctx, projects[i].ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// Save writes the project's mutable fields and every step's state
func (r *ProjectRepository) Save(ctx context.Context, proj *project.Project) error {
	q := r.db.conn(ctx)
	result, err := q.ExecContext(ctx, `
		UPDATE projects
		SET project_name = ?, description = ?, status = ?, current_step_number = ?, updated_at = ?
		WHERE id = ?
	`,
		proj.Name,
		proj.Description,
		proj.Status,
		proj.CurrentStepNumber,
		proj.UpdatedAt,
		proj.ID,
	)
	if err != nil {
		return translate("update project", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	for _, step := range proj.Steps {
		result, err := q.ExecContext(ctx, `
			UPDATE steps
			SET status = ?, assigned_user_id = ?, completed_at = ?
			WHERE id = ? AND project_id = ?
		`,
			step.Status,
			step.AssignedUserID,
			step.CompletedAt,
			step.ID,
			proj.ID,
		)
		if err != nil {
			return translate(fmt.Sprintf("update step %d", step.StepNumber), err)
		}
		if err := requireRow(result); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a project; steps, actions and assets cascade
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return translate("delete project", err)
	}
	return requireRow(result)
}

func (r *ProjectRepository) steps(ctx context.Context, projectID string) ([]project.Step, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, project_id, step_number, step_name, task_description,
			assigned_user_id, status, completed_at, created_at
		FROM steps
		WHERE project_id = ?
		ORDER BY step_number DESC
	`, projectID)
	if err != nil {
		return nil, translate("list steps", err)
	}
	defer rows.Close()

	var steps []project.Step
	for rows.Next() {
		var step project.Step
		var completedAt sql.NullTime
		if err := rows.Scan(
			&step.ID,
			&step.ProjectID,
			&step.StepNumber,
			&step.Name,
			&step.TaskDescription,
			&step.AssignedUserID,
			&step.Status,
			&completedAt,
			&step.CreatedAt,
		); err != nil {
			return nil, translate("scan step", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			step.CompletedAt = &t
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate step rows", err)
	}
	return steps, nil
}

func scanProject(s scanner) (*project.Project, error) {
	var proj project.Project
	var current sql.NullInt64
	err := s.Scan(
		&proj.ID,
		&proj.Name,
		&proj.Description,
		&proj.OwnerID,
		&proj.Status,
		&current,
		&proj.CreatedAt,
		&proj.UpdatedAt,
	)
	if err != nil {
		return nil, translate("scan project", err)
	}
	if current.Valid {
		n := int(current.Int64)
		proj.CurrentStepNumber = &n
	}
	return &proj, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
