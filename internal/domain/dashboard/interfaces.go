package dashboard

import "context"

// Repository computes project aggregates.
type Repository interface {
	ProjectCounts(ctx context.Context, userID string) (ProjectCounts, error)
	// CountActiveSteps counts in-progress steps assigned to userID.
	CountActiveSteps(ctx context.Context, userID string) (int, error)
}

// UnreadCounter reports unread notifications.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
}
