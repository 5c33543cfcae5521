package project

import "context"

// Repository provides read access to projects and their steps.
type Repository interface {
	Get(ctx context.Context, id string) (*Project, error)
	ListForUser(ctx context.Context, userID string) ([]Project, error)
}
