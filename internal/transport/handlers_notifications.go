package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/stepflow/internal/domain/notification"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Notifications.List(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []notification.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notifications.MarkRead(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Notification marked as read"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.Stats(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
