package notification

import "time"

// Notification is a message surfaced to one user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID *string   `json:"project_id,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind identifies the transition that produced an event.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventForwarded  EventKind = "forwarded"
	EventSentBack   EventKind = "sent_back"
	EventCompleted  EventKind = "completed"
	EventReassigned EventKind = "reassigned"
)

// Event describes a committed transition and the user now responsible for the project.
type Event struct {
	ID          string
	Kind        EventKind
	ProjectID   string
	ProjectName string
	StepNumber  int
	StepName    string
	FromUserID  string
	ToUserID    string
	Comments    string
	OccurredAt  time.Time
}

// OutboxEntry is a notification written with its transition and not yet delivered.
type OutboxEntry struct {
	Notification
	Attempts  int
	NotBefore time.Time
}
