package mcp

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/auth"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/workflow"
	"github.com/stretchr/testify/require"
)

type fakeServices struct {
	createdBy   string
	created     workflow.CreateRequest
	forwardErr  error
	transitions []workflow.TransitionRequest
}

func (f *fakeServices) Create(_ context.Context, actorID string, req workflow.CreateRequest) (*workflow.Result, error) {
	f.createdBy = actorID
	f.created = req
	top := req.Steps[0].StepNumber
	return &workflow.Result{Project: &project.Project{ID: "p1", Name: req.Name, OwnerID: actorID, Status: project.StatusInProgress, CurrentStepNumber: &top}}, nil
}

func (f *fakeServices) Forward(_ context.Context, req workflow.TransitionRequest) (*workflow.Result, error) {
	if f.forwardErr != nil {
		return nil, f.forwardErr
	}
	f.transitions = append(f.transitions, req)
	return &workflow.Result{Project: &project.Project{ID: req.ProjectID, Status: project.StatusCompleted}}, nil
}

func (f *fakeServices) SendBack(_ context.Context, req workflow.TransitionRequest) (*workflow.Result, error) {
	if req.Comments == "" {
		return nil, project.ErrInvalidInput
	}
	f.transitions = append(f.transitions, req)
	return &workflow.Result{Project: &project.Project{ID: req.ProjectID, Status: project.StatusInProgress}}, nil
}

func (f *fakeServices) Get(_ context.Context, actorID, id string) (*project.Project, error) {
	if id != "p1" {
		return nil, project.ErrProjectNotFound
	}
	return &project.Project{ID: "p1", OwnerID: actorID}, nil
}

func (f *fakeServices) List(_ context.Context, _ string) ([]project.Project, error) {
	return nil, nil
}

func (f *fakeServices) ListByProject(_ context.Context, projectID string) ([]action.Action, error) {
	return []action.Action{{ID: 1, ProjectID: projectID, Kind: action.KindCreate}}, nil
}

type fakeNotifications struct {
	marked []string
}

func (f *fakeNotifications) List(_ context.Context, userID string) ([]notification.Notification, error) {
	return []notification.Notification{{ID: "n1", UserID: userID, Message: "hello"}}, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, _ string, id string) error {
	if id != "n1" {
		return notification.ErrNotificationNotFound
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeDashboard struct{}

func (fakeDashboard) Stats(_ context.Context, _ string) (*dashboard.Stats, error) {
	return &dashboard.Stats{ProjectCounts: dashboard.ProjectCounts{Total: 2, Active: 1}, MyActiveSteps: 1}, nil
}

func connect(t *testing.T, svc *fakeServices, notes *fakeNotifications) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(Config{
		Services: Services{
			Workflow:      svc,
			Projects:      svc,
			Actions:       svc,
			Notifications: notes,
			Dashboard:     fakeDashboard{},
		},
		TransportMode: "stdio",
		StdioUser:     "u-local",
	})

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) (*sdkmcp.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeServices{}, &fakeNotifications{})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"create_project", "dashboard_stats", "forward_step", "get_project", "list_actions",
		"list_notifications", "list_projects", "mark_notification_read", "send_back_step",
	}, names)
}

func TestCreateProjectActsAsStdioUser(t *testing.T) {
	svc := &fakeServices{}
	cs := connect(t, svc, &fakeNotifications{})

	res, text := callTool(t, cs, "create_project", map[string]any{
		"project_name": "Launch",
		"steps": []map[string]any{
			{"step_number": 3, "step_name": "Review", "assigned_user_id": "a"},
			{"step_number": 1, "step_name": "Publish", "assigned_user_id": "b"},
		},
	})
	require.False(t, res.IsError, text)
	require.Equal(t, "u-local", svc.createdBy)
	require.Len(t, svc.created.Steps, 2)
	require.Equal(t, "Review", svc.created.Steps[0].Name)
	require.Contains(t, text, `"current_step_number": 3`)
}

func TestTransitionTools(t *testing.T) {
	svc := &fakeServices{}
	cs := connect(t, svc, &fakeNotifications{})

	res, text := callTool(t, cs, "forward_step", map[string]any{"project_id": "p1", "comments": "ok"})
	require.False(t, res.IsError, text)
	require.Contains(t, text, `"status": "completed"`)

	res, text = callTool(t, cs, "send_back_step", map[string]any{"project_id": "p1"})
	require.True(t, res.IsError)
	require.Contains(t, text, "INVALID_INPUT")

	require.Len(t, svc.transitions, 1)
	require.Equal(t, workflow.TransitionRequest{ProjectID: "p1", ActorID: "u-local", Comments: "ok"}, svc.transitions[0])
}

func TestToolErrorsAreCoded(t *testing.T) {
	svc := &fakeServices{forwardErr: project.ErrNotAuthorized}
	cs := connect(t, svc, &fakeNotifications{})

	res, text := callTool(t, cs, "forward_step", map[string]any{"project_id": "p1"})
	require.True(t, res.IsError)
	require.Contains(t, text, "NOT_AUTHORIZED")

	res, text = callTool(t, cs, "list_actions", map[string]any{"project_id": "missing"})
	require.True(t, res.IsError)
	require.Contains(t, text, "PROJECT_NOT_FOUND")
}

func TestNotificationTools(t *testing.T) {
	notes := &fakeNotifications{}
	cs := connect(t, &fakeServices{}, notes)

	res, text := callTool(t, cs, "list_notifications", map[string]any{})
	require.False(t, res.IsError, text)
	require.Contains(t, text, `"user_id": "u-local"`)

	res, text = callTool(t, cs, "mark_notification_read", map[string]any{"notification_id": "n1"})
	require.False(t, res.IsError, text)
	require.Equal(t, []string{"n1"}, notes.marked)

	res, text = callTool(t, cs, "mark_notification_read", map[string]any{"notification_id": "n2"})
	require.True(t, res.IsError)
	require.Contains(t, text, "NOTIFICATION_NOT_FOUND")

	res, text = callTool(t, cs, "dashboard_stats", map[string]any{})
	require.False(t, res.IsError, text)
	require.Contains(t, text, `"my_active_steps": 1`)
}

func TestWorkflowRulesResource(t *testing.T) {
	cs := connect(t, &fakeServices{}, &fakeNotifications{})

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "stepflow://docs/workflow-rules"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "descending step_number")
}

type stubResolver map[string]string

func (s stubResolver) ResolveUser(_ context.Context, token string) (string, error) {
	if token == "down" {
		return "", errors.New("database is locked")
	}
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", auth.ErrInvalidToken
}

func TestAuthMiddleware(t *testing.T) {
	var seen string
	next := func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		seen = getUserID(ctx)
		return &sdkmcp.CallToolResult{}, nil
	}
	handler := authMiddleware(stubResolver{"tok": "u1"})(next)

	withHeader := func(value string) *sdkmcp.CallToolRequest {
		header := http.Header{}
		if value != "" {
			header.Set("Authorization", value)
		}
		return &sdkmcp.CallToolRequest{Extra: &sdkmcp.RequestExtra{Header: header}}
	}

	_, err := handler(context.Background(), "tools/call", withHeader("Bearer tok"))
	require.NoError(t, err)
	require.Equal(t, "u1", seen)

	_, err = handler(context.Background(), "tools/call", withHeader("Bearer nope"))
	require.ErrorContains(t, err, "unauthorized")

	_, err = handler(context.Background(), "tools/call", withHeader("Bearer down"))
	require.ErrorContains(t, err, "could not verify credentials")
	require.NotContains(t, err.Error(), "unauthorized")

	_, err = handler(context.Background(), "tools/call", withHeader(""))
	require.ErrorContains(t, err, "missing bearer token")

	_, err = handler(context.Background(), "tools/call", &sdkmcp.CallToolRequest{})
	require.ErrorContains(t, err, "missing headers")

	seen = ""
	_, err = handler(context.Background(), "ping", &sdkmcp.CallToolRequest{})
	require.NoError(t, err)
	require.Empty(t, seen)
}
