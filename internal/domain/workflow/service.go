package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/rpggio/stepflow/internal/repository"
)

// CreateRequest describes a new project.
type CreateRequest struct {
	Name        string      `json:"project_name"`
	Description string      `json:"description"`
	Steps       []StepInput `json:"steps"`
}

// StepInput describes one step of a new project.
type StepInput struct {
	StepNumber      int    `json:"step_number"`
	Name            string `json:"step_name"`
	TaskDescription string `json:"task_description"`
	AssignedUserID  string `json:"assigned_user_id"`
}

// TransitionRequest moves a project forward or back.
type TransitionRequest struct {
	ProjectID string
	ActorID   string
	Comments  string
	Uploads   []asset.Upload
}

// EditRequest changes descriptive project fields. Nil fields are left alone.
type EditRequest struct {
	Name        *string `json:"project_name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Result is the outcome of a committed mutation.
type Result struct {
	Project *project.Project `json:"project"`
	Action  *action.Action   `json:"action"`
	Assets  []asset.Asset    `json:"assets,omitempty"`
}

// Service runs every project mutation: it validates, applies the change under a
// per-project lock, and logs the action and queues notifications in the same
// transaction.
type Service struct {
	projects ProjectStore
	actions  ActionLog
	assets   AssetStore
	users    UserDirectory
	notifier Notifier
	tx       Transactor
	locks    *projectLocks
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a workflow service.
func NewService(projects ProjectStore, actions ActionLog, assets AssetStore, users UserDirectory, notifier Notifier, tx Transactor, logger *slog.Logger) *Service {
	return &Service{
		projects: projects,
		actions:  actions,
		assets:   assets,
		users:    users,
		notifier: notifier,
		tx:       tx,
		locks:    newProjectLocks(),
		logger:   logger,
		now:      time.Now,
	}
}

// Create builds a project from req with its first step in progress.
func (s *Service) Create(ctx context.Context, actorID string, req CreateRequest) (*Result, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}
	for _, in := range req.Steps {
		if err := s.requireUser(ctx, in.AssignedUserID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	proj := &project.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		OwnerID:     actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, in := range req.Steps {
		proj.Steps = append(proj.Steps, project.Step{
			ID:              uuid.NewString(),
			ProjectID:       proj.ID,
			StepNumber:      in.StepNumber,
			Name:            strings.TrimSpace(in.Name),
			TaskDescription: in.TaskDescription,
			AssignedUserID:  in.AssignedUserID,
			CreatedAt:       now,
		})
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		return nil, err
	}
	if err := seq.Start(); err != nil {
		return nil, err
	}
	first, _ := seq.Current()

	entry := &action.Action{
		ProjectID: proj.ID,
		UserID:    actorID,
		Kind:      action.KindCreate,
		Comments:  "Project created",
		CreatedAt: now,
	}
	ev := s.event(notification.EventCreated, proj, first, actorID, first.AssignedUserID, "")
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, proj); err != nil {
			return fmt.Errorf("%w: creating project: %v", project.ErrStorage, err)
		}
		id, err := s.actions.Append(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return s.enqueue(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", proj.ID, "owner_id", actorID, "steps", len(proj.Steps))
	}
	s.notifier.Wake()
	return &Result{Project: proj, Action: entry}, nil
}

// Forward completes the current step and hands the project to the next one.
func (s *Service) Forward(ctx context.Context, req TransitionRequest) (*Result, error) {
	return s.transition(ctx, req, action.KindForward)
}

// SendBack returns the project to the step that ran before the current one.
func (s *Service) SendBack(ctx context.Context, req TransitionRequest) (*Result, error) {
	if err := RequireComments(req.Comments); err != nil {
		return nil, err
	}
	return s.transition(ctx, req, action.KindSendBack)
}

func (s *Service) transition(ctx context.Context, req TransitionRequest, kind action.Kind) (*Result, error) {
	// Checked before storing files so rejected callers never write blobs.
	proj, err := s.load(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		return nil, err
	}
	if _, err := CanTransition(seq, req.ActorID); err != nil {
		return nil, err
	}

	stored, err := s.store(ctx, proj.ID, req.ActorID, req.Uploads)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(proj.ID)
	res, err := s.applyTransition(ctx, req, kind, stored)
	unlock()
	if err != nil {
		if len(stored) > 0 {
			s.assets.Discard(ctx, stored)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project transitioned", "project_id", res.Project.ID, "action", kind, "user_id", req.ActorID, "status", res.Project.Status)
	}
	s.notifier.Wake()
	return res, nil
}

func (s *Service) applyTransition(ctx context.Context, req TransitionRequest, kind action.Kind, stored []asset.Asset) (*Result, error) {
	proj, err := s.load(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		return nil, err
	}
	cur, err := CanTransition(seq, req.ActorID)
	if err != nil {
		return nil, err
	}
	from := *cur

	now := s.now().UTC()
	var target *project.Step
	switch kind {
	case action.KindForward:
		target, err = seq.Advance(now)
	case action.KindSendBack:
		target, err = seq.Rewind()
	default:
		err = fmt.Errorf("%w: unsupported transition %s", project.ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}
	if err := seq.Check(); err != nil {
		return nil, err
	}
	proj.UpdatedAt = now

	entry := &action.Action{
		ProjectID:  proj.ID,
		UserID:     req.ActorID,
		StepID:     &from.ID,
		StepNumber: &from.StepNumber,
		Kind:       kind,
		Comments:   req.Comments,
		AssetIDs:   assetIDs(stored),
		CreatedAt:  now,
	}

	var ev notification.Event
	switch {
	case kind == action.KindSendBack:
		ev = s.event(notification.EventSentBack, proj, target, req.ActorID, target.AssignedUserID, req.Comments)
	case target == nil:
		ev = s.event(notification.EventCompleted, proj, &from, req.ActorID, proj.OwnerID, req.Comments)
	default:
		ev = s.event(notification.EventForwarded, proj, target, req.ActorID, target.AssignedUserID, req.Comments)
	}
	if err := s.commit(ctx, proj, entry, stored, ev); err != nil {
		return nil, err
	}
	return &Result{Project: proj, Action: entry, Assets: stored}, nil
}

// Edit changes the project's name or description. Owner only.
func (s *Service) Edit(ctx context.Context, actorID, projectID string, req EditRequest) (*Result, error) {
	var changes []string
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: project_name cannot be empty", project.ErrInvalidInput)
		}
		changes = append(changes, "name")
	}
	if req.Description != nil {
		changes = append(changes, "description")
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", project.ErrInvalidInput)
	}

	unlock := s.locks.Lock(projectID)
	defer unlock()

	proj, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(proj, actorID); err != nil {
		return nil, err
	}
	if req.Name != nil {
		proj.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		proj.Description = *req.Description
	}
	now := s.now().UTC()
	proj.UpdatedAt = now

	entry := &action.Action{
		ProjectID: proj.ID,
		UserID:    actorID,
		Kind:      action.KindEdit,
		Comments:  "Updated " + strings.Join(changes, " and "),
		CreatedAt: now,
	}
	if err := s.commit(ctx, proj, entry, nil); err != nil {
		return nil, err
	}
	return &Result{Project: proj, Action: entry}, nil
}

// Reassign hands a step to another user. Owner only.
func (s *Service) Reassign(ctx context.Context, actorID, projectID string, stepNumber int, assigneeID string) (*Result, error) {
	if strings.TrimSpace(assigneeID) == "" {
		return nil, fmt.Errorf("%w: assigned_user_id is required", project.ErrInvalidInput)
	}
	if err := s.requireUser(ctx, assigneeID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(projectID)
	res, err := s.applyReassign(ctx, actorID, projectID, stepNumber, assigneeID)
	unlock()
	if err != nil {
		return nil, err
	}
	s.notifier.Wake()
	return res, nil
}

func (s *Service) applyReassign(ctx context.Context, actorID, projectID string, stepNumber int, assigneeID string) (*Result, error) {
	proj, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(proj, actorID); err != nil {
		return nil, err
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		return nil, err
	}
	step, ok := seq.Step(stepNumber)
	if !ok {
		return nil, fmt.Errorf("%w: step %d", project.ErrStepNotFound, stepNumber)
	}

	previous := step.AssignedUserID
	step.AssignedUserID = assigneeID
	now := s.now().UTC()
	proj.UpdatedAt = now

	entry := &action.Action{
		ProjectID:  proj.ID,
		UserID:     actorID,
		StepID:     &step.ID,
		StepNumber: &step.StepNumber,
		Kind:       action.KindReassign,
		Comments:   fmt.Sprintf("Step %d reassigned from %s to %s", step.StepNumber, previous, assigneeID),
		CreatedAt:  now,
	}

	var events []notification.Event
	if cur, ok := seq.Current(); ok && cur == step && previous != assigneeID {
		events = append(events, s.event(notification.EventReassigned, proj, step, actorID, assigneeID, ""))
	}
	if err := s.commit(ctx, proj, entry, nil, events...); err != nil {
		return nil, err
	}
	return &Result{Project: proj, Action: entry}, nil
}

// Cancel stops an in-progress project. Owner only.
func (s *Service) Cancel(ctx context.Context, actorID, projectID, comments string) (*Result, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	proj, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(proj, actorID); err != nil {
		return nil, err
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		return nil, err
	}
	cur, ok := seq.Current()
	if !ok || proj.Status != project.StatusInProgress {
		return nil, fmt.Errorf("%w: project is %s", project.ErrInvalidState, proj.Status)
	}
	from := *cur
	if err := seq.Halt(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	proj.UpdatedAt = now

	entry := &action.Action{
		ProjectID:  proj.ID,
		UserID:     actorID,
		StepID:     &from.ID,
		StepNumber: &from.StepNumber,
		Kind:       action.KindCancel,
		Comments:   comments,
		CreatedAt:  now,
	}
	if err := s.commit(ctx, proj, entry, nil); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("project cancelled", "project_id", proj.ID, "user_id", actorID)
	}
	return &Result{Project: proj, Action: entry}, nil
}

// Delete removes a project with its steps, actions and files. Owner only.
func (s *Service) Delete(ctx context.Context, actorID, projectID string) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	proj, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if err := RequireOwner(proj, actorID); err != nil {
		return err
	}
	files, err := s.assets.ListByProject(ctx, proj.ID)
	if err != nil {
		return fmt.Errorf("%w: listing assets: %v", project.ErrStorage, err)
	}

	rec := &action.AuditRecord{
		ProjectID:   proj.ID,
		ProjectName: proj.Name,
		UserID:      actorID,
		Kind:        action.KindDelete,
		Comments:    fmt.Sprintf("Project deleted with %d file(s)", len(files)),
		CreatedAt:   s.now().UTC(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.actions.Archive(ctx, rec); err != nil {
			return err
		}
		if err := s.projects.Delete(ctx, proj.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return project.ErrProjectNotFound
			}
			return fmt.Errorf("%w: deleting project: %v", project.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("project deleted", "action", action.KindDelete, "project_id", proj.ID, "project_name", proj.Name, "user_id", actorID, "files", len(files))
	}
	s.assets.Discard(ctx, files)
	return nil
}

// Upload attaches files to a project outside a transition. Owner or assignees only.
func (s *Service) Upload(ctx context.Context, actorID, projectID, comments string, uploads []asset.Upload) (*Result, error) {
	proj, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !proj.CanView(actorID) {
		return nil, project.ErrNotAuthorized
	}
	stored, err := s.store(ctx, proj.ID, actorID, uploads)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, asset.ErrNoFiles
	}

	unlock := s.locks.Lock(proj.ID)
	defer unlock()

	proj, err = s.load(ctx, projectID)
	if err != nil {
		s.assets.Discard(ctx, stored)
		return nil, err
	}
	if comments == "" {
		comments = fmt.Sprintf("Uploaded %d file(s)", len(stored))
	}
	entry := &action.Action{
		ProjectID: proj.ID,
		UserID:    actorID,
		Kind:      action.KindUpload,
		Comments:  comments,
		AssetIDs:  assetIDs(stored),
		CreatedAt: s.now().UTC(),
	}
	seq, err := NewSequencer(proj)
	if err != nil {
		s.assets.Discard(ctx, stored)
		return nil, err
	}
	if cur, ok := seq.Current(); ok {
		entry.StepID = &cur.ID
		entry.StepNumber = &cur.StepNumber
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		id, err := s.actions.Append(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return s.assets.Attach(ctx, id, stored)
	})
	if err != nil {
		s.assets.Discard(ctx, stored)
		return nil, err
	}
	return &Result{Project: proj, Action: entry, Assets: stored}, nil
}

// commit saves proj, appends entry, links stored assets and queues events in one transaction.
func (s *Service) commit(ctx context.Context, proj *project.Project, entry *action.Action, stored []asset.Asset, events ...notification.Event) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.projects.Save(ctx, proj); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return project.ErrProjectNotFound
			}
			return fmt.Errorf("%w: saving project: %v", project.ErrStorage, err)
		}
		id, err := s.actions.Append(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		if len(stored) > 0 {
			if err := s.assets.Attach(ctx, id, stored); err != nil {
				return err
			}
		}
		for _, ev := range events {
			if err := s.enqueue(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) enqueue(ctx context.Context, ev notification.Event) error {
	if err := s.notifier.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("%w: %v", project.ErrStorage, err)
	}
	return nil
}

func (s *Service) store(ctx context.Context, projectID, actorID string, uploads []asset.Upload) ([]asset.Asset, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	stored, err := s.assets.Store(ctx, projectID, actorID, uploads)
	if errors.Is(err, asset.ErrNoFiles) {
		return nil, nil
	}
	return stored, err
}

func (s *Service) load(ctx context.Context, id string) (*project.Project, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("%w: loading project: %v", project.ErrStorage, err)
	}
	return proj, nil
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if _, err := s.users.Get(ctx, id); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return fmt.Errorf("assigned user %s: %w", id, user.ErrUserNotFound)
		}
		return fmt.Errorf("%w: looking up user: %v", project.ErrStorage, err)
	}
	return nil
}

func (s *Service) event(kind notification.EventKind, proj *project.Project, step *project.Step, from, to, comments string) notification.Event {
	ev := notification.Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProjectID:   proj.ID,
		ProjectName: proj.Name,
		FromUserID:  from,
		ToUserID:    to,
		Comments:    comments,
		OccurredAt:  proj.UpdatedAt,
	}
	if step != nil {
		ev.StepNumber = step.StepNumber
		ev.StepName = step.Name
	}
	return ev
}

func assetIDs(assets []asset.Asset) []string {
	if len(assets) == 0 {
		return nil
	}
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	return ids
}
