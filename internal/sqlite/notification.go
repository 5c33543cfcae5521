package sqlite

import (
	"context"
	"database/sql"

	"github.com/rpggio/stepflow/internal/domain/notification"
)

// NotificationRepository implements notification.Repository for SQLite
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts n unless its ID already exists. A project deleted before delivery leaves project_id NULL.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	var projectID any
	if n.ProjectID != nil {
		projectID = *n.ProjectID
	}
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, user_id, project_id, message, is_read, created_at)
		VALUES (?, ?, (SELECT id FROM projects WHERE id = ?), ?, ?, ?)
	`,
		n.ID,
		n.UserID,
		projectID,
		n.Message,
		n.Read,
		n.CreatedAt,
	)
	return translate("create notification", err)
}

// Get retrieves a notification by ID
func (r *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	row := r.db.conn(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, project_id, message, is_read, created_at
		FROM notifications
		WHERE id = ?
	`, id)
	return scanNotification(row)
}

// ListByUser returns up to limit notifications for userID, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, user_id, project_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, translate("list notifications", err)
	}
	defer rows.Close()

	var items []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate notification rows", err)
	}
	return items, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return translate("mark notification read", err)
	}
	return requireRow(result)
}

// CountUnread returns the number of unread notifications for userID
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&count)
	if err != nil {
		return 0, translate("count unread notifications", err)
	}
	return count, nil
}

func scanNotification(s scanner) (*notification.Notification, error) {
	var n notification.Notification
	var projectID sql.NullString
	err := s.Scan(
		&n.ID,
		&n.UserID,
		&projectID,
		&n.Message,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, translate("scan notification", err)
	}
	if projectID.Valid {
		n.ProjectID = &projectID.String
	}
	return &n, nil
}
