package notification

import "errors"

// ErrNotificationNotFound indicates the notification doesn't exist.
var ErrNotificationNotFound = errors.New("notification not found")
