package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/workflow"
)

type resultResponse struct {
	Message string           `json:"message"`
	Project *project.Project `json:"project"`
	Action  *action.Action   `json:"action,omitempty"`
	Assets  []asset.Asset    `json:"assets,omitempty"`
}

type commentsRequest struct {
	Comments string `json:"comments"`
}

type reassignRequest struct {
	AssignedUserID string `json:"assigned_user_id"`
}

func respondResult(w http.ResponseWriter, status int, message string, res *workflow.Result) {
	writeJSON(w, status, resultResponse{
		Message: message,
		Project: res.Project,
		Action:  res.Action,
		Assets:  res.Assets,
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateJSONSchema(createProjectLoader, body); err != nil {
		s.fail(w, r, err)
		return
	}
	var req workflow.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", project.ErrInvalidInput, err))
		return
	}

	res, err := s.svc.Workflow.Create(r.Context(), actor(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusCreated, "Project created successfully", res)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Projects.List(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	proj, err := s.svc.Projects.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (s *Server) handleEditProject(w http.ResponseWriter, r *http.Request) {
	var req workflow.EditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.Edit(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Project updated successfully", res)
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: step number must be an integer", project.ErrInvalidInput))
		return
	}
	var req reassignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.Reassign(r.Context(), actor(r), chi.URLParam(r, "id"), number, req.AssignedUserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Step reassigned successfully", res)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req commentsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.Cancel(r.Context(), actor(r), chi.URLParam(r, "id"), req.Comments)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Project cancelled", res)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Workflow.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Project deleted successfully"})
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.transitionRequest(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.Forward(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	message := "Project forwarded successfully"
	if res.Project.Status == project.StatusCompleted {
		message = "Project completed"
	}
	respondResult(w, http.StatusOK, message, res)
}

func (s *Server) handleSendBack(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.transitionRequest(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.SendBack(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusOK, "Project sent back successfully", res)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		s.fail(w, r, fmt.Errorf("%w: multipart/form-data required", project.ErrInvalidInput))
		return
	}
	form, cleanup, err := s.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Workflow.Upload(r.Context(), actor(r), chi.URLParam(r, "id"), form.comments, form.uploads)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondResult(w, http.StatusCreated, "Files uploaded successfully", res)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	proj, err := s.svc.Projects.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.svc.Actions.ListByProject(r.Context(), proj.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []action.Action{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	proj, err := s.svc.Projects.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	assets, err := s.svc.Assets.ListByProject(r.Context(), proj.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if assets == nil {
		assets = []asset.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// transitionRequest reads comments and optional files from a JSON or multipart body.
func (s *Server) transitionRequest(w http.ResponseWriter, r *http.Request) (workflow.TransitionRequest, func(), error) {
	req := workflow.TransitionRequest{
		ProjectID: chi.URLParam(r, "id"),
		ActorID:   actor(r),
	}
	if isMultipart(r) {
		form, cleanup, err := s.parseMultipart(w, r)
		req.Comments = form.comments
		req.Uploads = form.uploads
		return req, cleanup, err
	}

	var body commentsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return req, func() {}, err
	}
	req.Comments = body.Comments
	return req, func() {}, nil
}

type multipartForm struct {
	comments string
	uploads  []asset.Upload
}

// parseMultipart opens every file under "files[]" or "files". The returned cleanup closes them.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (multipartForm, func(), error) {
	var form multipartForm
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, noop, fmt.Errorf("%w: upload exceeds %d bytes", project.ErrInvalidInput, tooLarge.Limit)
		}
		return form, noop, fmt.Errorf("%w: invalid multipart body: %v", project.ErrInvalidInput, err)
	}

	form.comments = r.FormValue("comments")
	assetType := r.FormValue("asset_type")
	metadata := r.FormValue("metadata_assets")

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files[]"]...)
	headers = append(headers, r.MultipartForm.File["files"]...)
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return form, cleanup, fmt.Errorf("%w: opening %s: %v", project.ErrInvalidInput, fh.Filename, err)
		}
		closers = append(closers, f.Close)
		form.uploads = append(form.uploads, asset.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Type:        assetType,
			Metadata:    metadata,
			Body:        f,
		})
	}
	return form, cleanup, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}
