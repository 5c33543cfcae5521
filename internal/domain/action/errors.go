package action

import "errors"

// ErrInvalidInput indicates an action entry is missing required fields.
var ErrInvalidInput = errors.New("invalid action entry")
