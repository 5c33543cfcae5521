package action

import "context"

// Repository provides append-only persistence for actions.
type Repository interface {
	Append(ctx context.Context, entry *Action) error
	ListByProject(ctx context.Context, projectID string) ([]Action, error)
	// Archive stores rec apart from the project, so it survives deletion.
	Archive(ctx context.Context, rec *AuditRecord) error
	ListArchived(ctx context.Context, projectID string) ([]AuditRecord, error)
}
