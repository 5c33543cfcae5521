package workflow

import (
	"fmt"
	"strings"

	"github.com/rpggio/stepflow/internal/domain/project"
)

// CanTransition returns the current step if actorID may forward or send back the sequenced project.
func CanTransition(seq *Sequencer, actorID string) (*project.Step, error) {
	if status := seq.Project().Status; status != project.StatusInProgress {
		return nil, fmt.Errorf("%w: project is %s", project.ErrInvalidState, status)
	}
	cur, ok := seq.Current()
	if !ok {
		return nil, fmt.Errorf("%w: no active step", project.ErrInvalidState)
	}
	if cur.AssignedUserID != actorID {
		return nil, fmt.Errorf("%w: step %d is assigned to another user", project.ErrNotAuthorized, cur.StepNumber)
	}
	return cur, nil
}

// RequireComments rejects an empty send-back reason.
func RequireComments(comments string) error {
	if strings.TrimSpace(comments) == "" {
		return fmt.Errorf("%w: comments are required when sending back", project.ErrInvalidInput)
	}
	return nil
}

// RequireOwner rejects actors other than the project owner.
func RequireOwner(proj *project.Project, actorID string) error {
	if !proj.IsOwner(actorID) {
		return fmt.Errorf("%w: only the owner may change this project", project.ErrNotAuthorized)
	}
	return nil
}

// ValidateCreate checks a creation request before any user lookups.
func ValidateCreate(req CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: project_name is required", project.ErrInvalidInput)
	}
	if len(req.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", project.ErrInvalidInput)
	}
	seen := make(map[int]bool, len(req.Steps))
	for _, s := range req.Steps {
		if s.StepNumber < 1 {
			return fmt.Errorf("%w: step_number must be positive", project.ErrInvalidInput)
		}
		if seen[s.StepNumber] {
			return fmt.Errorf("%w: duplicate step_number %d", project.ErrInvalidInput, s.StepNumber)
		}
		seen[s.StepNumber] = true
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: step %d needs a step_name", project.ErrInvalidInput, s.StepNumber)
		}
		if strings.TrimSpace(s.AssignedUserID) == "" {
			return fmt.Errorf("%w: step %d needs an assigned_user_id", project.ErrInvalidInput, s.StepNumber)
		}
	}
	return nil
}
