package workflow

import (
	"context"

	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
)

// ProjectStore persists projects together with their steps.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	Create(ctx context.Context, p *project.Project) error
	// Save writes project fields and every step's status, assignee and completion time.
	Save(ctx context.Context, p *project.Project) error
	Delete(ctx context.Context, id string) error
}

// Transactor runs fn in a single storage transaction carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ActionLog records audit entries.
type ActionLog interface {
	Append(ctx context.Context, entry *action.Action) (int64, error)
	Archive(ctx context.Context, rec *action.AuditRecord) error
}

// AssetStore writes uploaded files and links them to actions.
type AssetStore interface {
	Store(ctx context.Context, projectID, userID string, uploads []asset.Upload) ([]asset.Asset, error)
	Attach(ctx context.Context, actionID int64, assets []asset.Asset) error
	Discard(ctx context.Context, assets []asset.Asset)
	ListByProject(ctx context.Context, projectID string) ([]asset.Asset, error)
}

// UserDirectory resolves assignees.
type UserDirectory interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Notifier queues transition events inside the caller's transaction and is
// woken once that transaction commits.
type Notifier interface {
	Enqueue(ctx context.Context, ev notification.Event) error
	Wake()
}
