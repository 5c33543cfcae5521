package project

import "time"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// StepStatus is the lifecycle state of a single workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSentBack   StepStatus = "sent_back"
)

// Project is a workflow instance: an ordered set of steps and a pointer to the active one.
type Project struct {
	ID                string    `json:"id"`
	Name              string    `json:"project_name"`
	Description       string    `json:"description"`
	OwnerID           string    `json:"owner_id"`
	Status            Status    `json:"status"`
	CurrentStepNumber *int      `json:"current_step_number"`
	Steps             []Step    `json:"steps,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Step is one stage of a project's workflow, owned by one assigned user.
type Step struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	StepNumber      int        `json:"step_number"`
	Name            string     `json:"step_name"`
	TaskDescription string     `json:"task_description"`
	AssignedUserID  string     `json:"assigned_user_id"`
	Status          StepStatus `json:"status"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsOwner reports whether userID created the project.
func (p *Project) IsOwner(userID string) bool {
	return p.OwnerID == userID
}

// IsAssigned reports whether userID is assigned to any step.
func (p *Project) IsAssigned(userID string) bool {
	for _, step := range p.Steps {
		if step.AssignedUserID == userID {
			return true
		}
	}
	return false
}

// CanView reports whether userID may read the project.
func (p *Project) CanView(userID string) bool {
	return p.IsOwner(userID) || p.IsAssigned(userID)
}
