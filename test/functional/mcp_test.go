package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/testserver"
	"github.com/stretchr/testify/require"
)

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func connectHTTP(t *testing.T, ts *testserver.TestServer, token string) (*sdkmcp.ClientSession, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: &bearerTransport{token: token, base: http.DefaultTransport}},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { _ = session.Close() })
	return session, nil
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (*sdkmcp.CallToolResult, json.RawMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "Tool %s returned no text content", name)
	return result, json.RawMessage(text.Text)
}

func mustCall(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) json.RawMessage {
	t.Helper()
	result, data := callTool(t, session, name, args)
	require.False(t, result.IsError, "Tool %s returned error: %s", name, data)
	return data
}

func TestFunctional_MCPRequiresBearerToken(t *testing.T) {
	ts := testserver.New(t)

	resp, err := http.Post(ts.Server.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = connectHTTP(t, ts, "bogus")
	require.Error(t, err)
}

func TestFunctional_MCPWorkflow(t *testing.T) {
	ts := testserver.New(t)
	owner := ts.Register(t, "owner")
	review := ts.Register(t, "reviewer")
	publish := ts.Register(t, "publisher")

	ownerSession, err := connectHTTP(t, ts, owner.Token)
	require.NoError(t, err)

	created := mustCall(t, ownerSession, "create_project", map[string]any{
		"project_name": "Newsletter",
		"steps": []map[string]any{
			{"step_number": 2, "step_name": "Review", "assigned_user_id": review.ID},
			{"step_number": 1, "step_name": "Publish", "assigned_user_id": publish.ID},
		},
	})
	var proj struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		CurrentStepNumber *int   `json:"current_step_number"`
	}
	require.NoError(t, json.Unmarshal(created, &proj))
	require.Equal(t, 2, *proj.CurrentStepNumber)

	// The owner isn't assigned to the current step.
	result, data := callTool(t, ownerSession, "forward_step", map[string]any{"project_id": proj.ID})
	require.True(t, result.IsError)
	require.Contains(t, string(data), "NOT_AUTHORIZED")

	reviewSession, err := connectHTTP(t, ts, review.Token)
	require.NoError(t, err)

	result, data = callTool(t, reviewSession, "send_back_step", map[string]any{"project_id": proj.ID, "comments": "x"})
	require.True(t, result.IsError)
	require.Contains(t, string(data), "NO_PRIOR_STEP")

	forwarded := mustCall(t, reviewSession, "forward_step", map[string]any{"project_id": proj.ID, "comments": "approved"})
	require.NoError(t, json.Unmarshal(forwarded, &proj))
	require.Equal(t, 1, *proj.CurrentStepNumber)

	publishSession, err := connectHTTP(t, ts, publish.Token)
	require.NoError(t, err)
	completed := mustCall(t, publishSession, "forward_step", map[string]any{"project_id": proj.ID})
	require.NoError(t, json.Unmarshal(completed, &proj))
	require.Equal(t, "completed", proj.Status)
	require.Nil(t, proj.CurrentStepNumber)

	var actions []struct {
		Kind string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(mustCall(t, ownerSession, "list_actions", map[string]any{"project_id": proj.ID}), &actions))
	require.Len(t, actions, 3)

	var notes []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	require.Eventually(t, func() bool {
		_, data := callTool(t, ownerSession, "list_notifications", nil)
		return json.Unmarshal(data, &notes) == nil && len(notes) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, "Project completed: Newsletter. All steps finished.", notes[0].Message)

	mustCall(t, ownerSession, "mark_notification_read", map[string]any{"notification_id": notes[0].ID})

	var stats struct {
		Completed int `json:"completed_projects"`
		Unread    int `json:"unread_notifications"`
	}
	require.NoError(t, json.Unmarshal(mustCall(t, ownerSession, "dashboard_stats", nil), &stats))
	require.Equal(t, 1, stats.Completed)
	require.Zero(t, stats.Unread)
}
