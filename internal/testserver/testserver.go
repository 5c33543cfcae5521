package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/auth"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/rpggio/stepflow/internal/domain/workflow"
	"github.com/rpggio/stepflow/internal/mcp"
	"github.com/rpggio/stepflow/internal/sqlite"
	"github.com/rpggio/stepflow/internal/storage"
	"github.com/rpggio/stepflow/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

// TestServer runs the full HTTP stack over a temporary SQLite file and upload directory.
type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	UploadDir string
	Notifier  *notification.Notifier
	Workflow  *workflow.Service
}

// User is a registered account with a valid bearer token.
type User struct {
	ID       string
	Username string
	Token    string
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "stepflow.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	uploadDir := filepath.Join(dir, "uploads")
	blobs, err := storage.NewLocal(uploadDir)
	require.NoError(t, err)

	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	actionRepo := sqlite.NewActionRepository(db)
	assetRepo := sqlite.NewAssetRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)
	outboxRepo := sqlite.NewOutboxRepository(db)
	statsRepo := sqlite.NewStatsRepository(db)

	userSvc := user.NewService(userRepo, nil).WithHashCost(bcrypt.MinCost)
	projectSvc := project.NewService(projectRepo, nil)
	actionSvc := action.NewService(actionRepo, nil)
	assetSvc := asset.NewService(assetRepo, blobs, nil)
	notificationSvc := notification.NewService(notificationRepo, nil)
	dashboardSvc := dashboard.NewService(statsRepo, notificationSvc, nil)
	notifier := notification.NewNotifier(notificationRepo, outboxRepo, nil, notification.NotifierOptions{
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 100 * time.Millisecond,
	})
	workflowSvc := workflow.NewService(projectRepo, actionSvc, assetSvc, userSvc, notifier, db, nil)
	tokens := auth.NewTokens(secret, time.Hour, userSvc)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Workflow:      workflowSvc,
			Projects:      projectSvc,
			Actions:       actionSvc,
			Notifications: notificationSvc,
			Dashboard:     dashboardSvc,
		},
		Resolver:      tokens,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{},
	)

	handler := transport.NewServer(transport.Config{
		Services: transport.Services{
			Workflow:      workflowSvc,
			Projects:      projectSvc,
			Actions:       actionSvc,
			Assets:        assetSvc,
			Users:         userSvc,
			Notifications: notificationSvc,
			Dashboard:     dashboardSvc,
			Tokens:        tokens,
		},
		Resolver:      tokens,
		MCP:           mcpHandler,
		AuthRateRPS:   1000,
		AuthRateBurst: 1000,
	})
	server := httptest.NewServer(handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = notifier.Run(ctx)
	}()

	// The notifier outlives the HTTP server so in-flight transitions are delivered.
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
		_ = db.Close()
	})

	return &TestServer{
		Server:    server,
		DB:        db,
		UploadDir: uploadDir,
		Notifier:  notifier,
		Workflow:  workflowSvc,
	}
}

// Register creates an account and logs it in.
func (ts *TestServer) Register(t *testing.T, username string) User {
	t.Helper()
	password := "pw-" + username

	var reg struct {
		User user.User `json:"user"`
	}
	ts.JSON(t, http.MethodPost, "/api/register", "", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password":  password,
		"full_name": username,
	}, http.StatusCreated, &reg)

	var login struct {
		Token string `json:"token"`
	}
	ts.JSON(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusOK, &login)
	require.NotEmpty(t, login.Token)

	return User{ID: reg.User.ID, Username: username, Token: login.Token}
}

// Do sends a request with an optional JSON body and returns the status and raw response.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(t, req, token)
}

// DoRaw sends a prebuilt body with the given content type.
func (ts *TestServer) DoRaw(t *testing.T, method, path, token, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.Server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return ts.send(t, req, token)
}

// JSON sends a request, asserts the status, and decodes the response into out when non-nil.
func (ts *TestServer) JSON(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()
	status, data := ts.Do(t, method, path, token, body)
	require.Equal(t, wantStatus, status, string(data))
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out), string(data))
	}
}

func (ts *TestServer) send(t *testing.T, req *http.Request, token string) (int, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}
