package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, project.ErrStepNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call list_projects for visible ids"}
	case errors.Is(err, notification.ErrNotificationNotFound):
		return &APIError{Code: "NOTIFICATION_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call list_notifications"}
	case errors.Is(err, user.ErrUserNotFound):
		return &APIError{Code: "USER_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, project.ErrNotAuthorized):
		return &APIError{Code: "NOT_AUTHORIZED", Message: err.Error(), RecoveryHint: "Only the current step's assignee can act"}
	case errors.Is(err, project.ErrNoPriorStep):
		return &APIError{Code: "NO_PRIOR_STEP", Message: err.Error(), RecoveryHint: "The first step cannot be sent back"}
	case errors.Is(err, project.ErrNoNextStep):
		return &APIError{Code: "NO_NEXT_STEP", Message: err.Error()}
	case errors.Is(err, project.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: err.Error(), RecoveryHint: "Only in-progress projects can transition"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, project.ErrStorage):
		return &APIError{Code: "STORAGE_UNAVAILABLE", Message: "storage unavailable", RecoveryHint: "Retry later"}
	default:
		return nil
	}
}

// toolError returns the coded form of err when one exists.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
