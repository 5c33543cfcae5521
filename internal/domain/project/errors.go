package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrStepNotFound indicates the project has no step with the given number.
	ErrStepNotFound = errors.New("step not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrNotAuthorized indicates the actor lacks permission for the action.
	ErrNotAuthorized = errors.New("not authorized for this project")
	// ErrInvalidState indicates the project is not in a state that permits the transition.
	ErrInvalidState = errors.New("invalid project state")
	// ErrNoPriorStep indicates there is no earlier step to send the project back to.
	ErrNoPriorStep = errors.New("no previous step to send back to")
	// ErrNoNextStep indicates the current step is the last one.
	ErrNoNextStep = errors.New("no next step")
	// ErrStorage indicates persistence failed and the operation was aborted.
	ErrStorage = errors.New("storage unavailable")
)
