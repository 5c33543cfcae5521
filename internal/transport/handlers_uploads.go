package transport

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Assets.Lookup(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Visibility follows the owning project.
	if _, err := s.svc.Projects.Get(r.Context(), actor(r), a.ProjectID); err != nil {
		s.fail(w, r, err)
		return
	}

	rc, err := s.svc.Assets.Open(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil && s.logger != nil {
		s.logger.Warn("download interrupted", "path", a.Path, "error", err)
	}
}
