package user

import "errors"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates the username or email is taken.
	ErrUserExists = errors.New("username or email already exists")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput indicates a missing registration field.
	ErrInvalidInput = errors.New("invalid user input")
)
