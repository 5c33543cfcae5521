package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrUnauthorized, http.StatusUnauthorized},
		{user.ErrInvalidCredentials, http.StatusUnauthorized},
		{project.ErrNotAuthorized, http.StatusForbidden},
		{project.ErrProjectNotFound, http.StatusNotFound},
		{notification.ErrNotificationNotFound, http.StatusNotFound},
		{asset.ErrAssetNotFound, http.StatusNotFound},
		{fmt.Errorf("assigned user u9: %w", user.ErrUserNotFound), http.StatusNotFound},
		{project.ErrInvalidState, http.StatusConflict},
		{project.ErrNoPriorStep, http.StatusConflict},
		{user.ErrUserExists, http.StatusConflict},
		{fmt.Errorf("%w: comments are required", project.ErrInvalidInput), http.StatusBadRequest},
		{asset.ErrNoFiles, http.StatusBadRequest},
		{fmt.Errorf("%w: disk full", project.ErrStorage), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, errors.New("sql: connection refused"), "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
