package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rpggio/stepflow/internal/domain/notification"
)

// OutboxRepository implements notification.Outbox for SQLite.
// not_before is stored as unix milliseconds so due entries compare numerically.
type OutboxRepository struct {
	db *DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Add queues n for delivery as of its creation time. A repeated id is ignored.
func (r *OutboxRepository) Add(ctx context.Context, n *notification.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT OR IGNORE INTO notification_outbox (id, user_id, project_id, message, attempts, not_before, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`,
		n.ID,
		n.UserID,
		n.ProjectID,
		n.Message,
		createdAt.UnixMilli(),
		createdAt,
	)
	return translate("queue notification", err)
}

// Due returns up to limit entries ready at now, oldest first
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]notification.OutboxEntry, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, user_id, project_id, message, attempts, not_before, created_at
		FROM notification_outbox
		WHERE not_before <= ?
		ORDER BY not_before, rowid
		LIMIT ?
	`, now.UnixMilli(), limit)
	if err != nil {
		return nil, translate("list due notifications", err)
	}
	defer rows.Close()

	var entries []notification.OutboxEntry
	for rows.Next() {
		var entry notification.OutboxEntry
		var projectID sql.NullString
		var notBefore int64
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&projectID,
			&entry.Message,
			&entry.Attempts,
			&notBefore,
			&entry.CreatedAt,
		); err != nil {
			return nil, translate("scan outbox entry", err)
		}
		if projectID.Valid {
			entry.ProjectID = &projectID.String
		}
		entry.NotBefore = time.UnixMilli(notBefore).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate outbox rows", err)
	}
	return entries, nil
}

// NextDue returns the earliest scheduled attempt
func (r *OutboxRepository) NextDue(ctx context.Context) (time.Time, bool, error) {
	var next sql.NullInt64
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT MIN(not_before) FROM notification_outbox`).Scan(&next)
	if err != nil {
		return time.Time{}, false, translate("read next due notification", err)
	}
	if !next.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(next.Int64).UTC(), true, nil
}

// Reschedule records a failed attempt
func (r *OutboxRepository) Reschedule(ctx context.Context, id string, attempts int, notBefore time.Time) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE notification_outbox SET attempts = ?, not_before = ? WHERE id = ?`,
		attempts, notBefore.UnixMilli(), id)
	return translate("reschedule notification", err)
}

// Remove deletes a delivered entry. Removing a missing entry is not an error.
func (r *OutboxRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM notification_outbox WHERE id = ?`, id)
	return translate("remove outbox entry", err)
}

// Count returns the number of undelivered entries
func (r *OutboxRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_outbox`).Scan(&count); err != nil {
		return 0, translate("count outbox entries", err)
	}
	return count, nil
}
