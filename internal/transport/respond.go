package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, project.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrStepNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, asset.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, project.ErrInvalidState),
		errors.Is(err, project.ErrNoPriorStep),
		errors.Is(err, project.ErrNoNextStep),
		errors.Is(err, user.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, action.ErrInvalidInput),
		errors.Is(err, asset.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, project.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": message}. An empty message falls back to err's text,
// except for 500s whose details stay in the log.
func writeError(w http.ResponseWriter, _ *http.Request, err error, message string) {
	status := StatusFor(err)
	if message == "" {
		message = err.Error()
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
