package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/workflow"
)

// WorkflowService defines the workflow operations exposed as tools.
type WorkflowService interface {
	Create(ctx context.Context, actorID string, req workflow.CreateRequest) (*workflow.Result, error)
	Forward(ctx context.Context, req workflow.TransitionRequest) (*workflow.Result, error)
	SendBack(ctx context.Context, req workflow.TransitionRequest) (*workflow.Result, error)
}

// ProjectService defines project reads needed by MCP.
type ProjectService interface {
	Get(ctx context.Context, actorID, id string) (*project.Project, error)
	List(ctx context.Context, actorID string) ([]project.Project, error)
}

// ActionService defines action log reads needed by MCP.
type ActionService interface {
	ListByProject(ctx context.Context, projectID string) ([]action.Action, error)
}

// NotificationService defines notification operations needed by MCP.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// DashboardService defines dashboard reads needed by MCP.
type DashboardService interface {
	Stats(ctx context.Context, userID string) (*dashboard.Stats, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Workflow      WorkflowService
	Projects      ProjectService
	Actions       ActionService
	Notifications NotificationService
	Dashboard     DashboardService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      UserResolver
	TransportMode string // "stdio" or "http"
	StdioUser     string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "stepflow",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is a local, single-user transport: it acts as the configured user.
	if cfg.TransportMode == "stdio" {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.StdioUser))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
