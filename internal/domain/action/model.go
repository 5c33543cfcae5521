package action

import "time"

// Kind identifies what happened to a project.
type Kind string

const (
	KindCreate   Kind = "create"
	KindForward  Kind = "forward"
	KindSendBack Kind = "send_back"
	KindDelete   Kind = "delete"
	KindEdit     Kind = "edit"
	KindReassign Kind = "reassign"
	KindCancel   Kind = "cancel"
	KindUpload   Kind = "upload"
)

// Action is an immutable audit record of one workflow event.
type Action struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id"`
	StepID     *string   `json:"step_id,omitempty"`
	StepNumber *int      `json:"step_number,omitempty"`
	Kind       Kind      `json:"action"`
	Comments   string    `json:"comments,omitempty"`
	AssetIDs   []string  `json:"asset_ids,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// AuditRecord is an action kept after its project, and the project's log, are gone.
type AuditRecord struct {
	ID          int64     `json:"id"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	UserID      string    `json:"user_id"`
	Kind        Kind      `json:"action"`
	Comments    string    `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}
