package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/rpggio/stepflow/internal/repository"
)

// memState is an in-memory backend whose WithinTx rolls back on error.
type memState struct {
	mu       sync.Mutex
	projects map[string]project.Project
	actions  []action.Action
	assets   []asset.Asset
	archived []action.AuditRecord
	outbox   []notification.Event
	nextID   int64

	failAppend  bool
	failSave    bool
	failEnqueue bool
}

func newMemState() *memState {
	return &memState{projects: make(map[string]project.Project)}
}

func cloneProject(p project.Project) project.Project {
	p.Steps = append([]project.Step(nil), p.Steps...)
	if p.CurrentStepNumber != nil {
		n := *p.CurrentStepNumber
		p.CurrentStepNumber = &n
	}
	return p
}

func (m *memState) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	projects := make(map[string]project.Project, len(m.projects))
	for k, v := range m.projects {
		projects[k] = cloneProject(v)
	}
	actions := append([]action.Action(nil), m.actions...)
	assets := append([]asset.Asset(nil), m.assets...)
	archived := append([]action.AuditRecord(nil), m.archived...)
	outbox := append([]notification.Event(nil), m.outbox...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.projects, m.actions, m.assets = projects, actions, assets
		m.archived, m.outbox = archived, outbox
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memState) Get(_ context.Context, id string) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneProject(p)
	return &c, nil
}

func (m *memState) Create(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = cloneProject(*p)
	return nil
}

func (m *memState) Save(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	if _, ok := m.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.projects[p.ID] = cloneProject(*p)
	return nil
}

func (m *memState) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	kept := m.actions[:0:0]
	for _, a := range m.actions {
		if a.ProjectID != id {
			kept = append(kept, a)
		}
	}
	m.actions = kept
	return nil
}

func (m *memState) Append(_ context.Context, entry *action.Action) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return 0, fmt.Errorf("%w: appending action: locked", project.ErrStorage)
	}
	m.nextID++
	entry.ID = m.nextID
	m.actions = append(m.actions, *entry)
	return entry.ID, nil
}

func (m *memState) Archive(_ context.Context, rec *action.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived = append(m.archived, *rec)
	return nil
}

func (m *memState) archivedFor(projectID string) []action.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []action.AuditRecord
	for _, r := range m.archived {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memState) actionsFor(projectID string) []action.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []action.Action
	for _, a := range m.actions {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out
}

// memAssets implements AssetStore without touching disk.
type memAssets struct {
	state     *memState
	mu        sync.Mutex
	stored    int
	discarded []string
	failStore bool
}

func (a *memAssets) Store(_ context.Context, projectID, userID string, uploads []asset.Upload) ([]asset.Asset, error) {
	if a.failStore {
		return nil, project.ErrStorage
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []asset.Asset
	for _, up := range uploads {
		if up.Filename == "" {
			continue
		}
		a.stored++
		out = append(out, asset.Asset{
			ID:         fmt.Sprintf("asset-%d", a.stored),
			ProjectID:  projectID,
			UploadedBy: userID,
			Filename:   up.Filename,
			Path:       projectID + "_" + up.Filename,
		})
	}
	if len(out) == 0 {
		return nil, asset.ErrNoFiles
	}
	return out, nil
}

func (a *memAssets) Attach(_ context.Context, actionID int64, assets []asset.Asset) error {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	for i := range assets {
		id := actionID
		assets[i].ActionID = &id
		a.state.assets = append(a.state.assets, assets[i])
	}
	return nil
}

func (a *memAssets) Discard(_ context.Context, assets []asset.Asset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, x := range assets {
		a.discarded = append(a.discarded, x.Path)
	}
}

func (a *memAssets) ListByProject(_ context.Context, projectID string) ([]asset.Asset, error) {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	var out []asset.Asset
	for _, x := range a.state.assets {
		if x.ProjectID == projectID {
			out = append(out, x)
		}
	}
	return out, nil
}

type memUsers map[string]bool

func (u memUsers) Get(_ context.Context, id string) (*user.User, error) {
	if !u[id] {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: id, Username: id}, nil
}

// recordingNotifier queues events in memState so they roll back with it.
type recordingNotifier struct {
	state *memState
	mu    sync.Mutex
	wakes int
}

func (r *recordingNotifier) Enqueue(_ context.Context, ev notification.Event) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.failEnqueue {
		return errors.New("outbox unavailable")
	}
	r.state.outbox = append(r.state.outbox, ev)
	return nil
}

func (r *recordingNotifier) Wake() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakes++
}

func (r *recordingNotifier) all() []notification.Event {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return append([]notification.Event(nil), r.state.outbox...)
}

func (r *recordingNotifier) wakeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wakes
}
