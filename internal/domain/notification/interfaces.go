package notification

import (
	"context"
	"time"
)

// Repository persists notifications.
type Repository interface {
	// Create stores n unless a notification with the same id already exists.
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Outbox holds notifications until they are delivered. Add joins the
// transaction carried by ctx, so an entry exists only if its transition committed.
type Outbox interface {
	Add(ctx context.Context, n *Notification) error
	// Due returns up to limit entries whose NotBefore is at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error)
	// NextDue returns the earliest NotBefore, or false when the outbox is empty.
	NextDue(ctx context.Context) (time.Time, bool, error)
	Reschedule(ctx context.Context, id string, attempts int, notBefore time.Time) error
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
