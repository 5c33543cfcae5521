package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/asset"
	"github.com/rpggio/stepflow/internal/domain/dashboard"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
	"github.com/rpggio/stepflow/internal/domain/workflow"
)

// DefaultMaxUploadBytes caps a multipart request when Config leaves it unset.
const DefaultMaxUploadBytes = 16 << 20

// WorkflowService defines the project mutations exposed over HTTP.
type WorkflowService interface {
	Create(ctx context.Context, actorID string, req workflow.CreateRequest) (*workflow.Result, error)
	Forward(ctx context.Context, req workflow.TransitionRequest) (*workflow.Result, error)
	SendBack(ctx context.Context, req workflow.TransitionRequest) (*workflow.Result, error)
	Edit(ctx context.Context, actorID, projectID string, req workflow.EditRequest) (*workflow.Result, error)
	Reassign(ctx context.Context, actorID, projectID string, stepNumber int, assigneeID string) (*workflow.Result, error)
	Cancel(ctx context.Context, actorID, projectID, comments string) (*workflow.Result, error)
	Delete(ctx context.Context, actorID, projectID string) error
	Upload(ctx context.Context, actorID, projectID, comments string, uploads []asset.Upload) (*workflow.Result, error)
}

// ProjectService defines project reads.
type ProjectService interface {
	Get(ctx context.Context, actorID, id string) (*project.Project, error)
	List(ctx context.Context, actorID string) ([]project.Project, error)
}

// ActionService defines action log reads.
type ActionService interface {
	ListByProject(ctx context.Context, projectID string) ([]action.Action, error)
}

// AssetService defines asset reads.
type AssetService interface {
	ListByProject(ctx context.Context, projectID string) ([]asset.Asset, error)
	Lookup(ctx context.Context, path string) (*asset.Asset, error)
	Open(ctx context.Context, a *asset.Asset) (io.ReadCloser, error)
}

// UserService defines account operations.
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
	Authenticate(ctx context.Context, username, password string) (*user.User, error)
	ListOthers(ctx context.Context, actorID string) ([]user.User, error)
}

// NotificationService defines notification reads and acknowledgement.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// DashboardService defines dashboard reads.
type DashboardService interface {
	Stats(ctx context.Context, userID string) (*dashboard.Stats, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Services contains all domain services needed by the HTTP API.
type Services struct {
	Workflow      WorkflowService
	Projects      ProjectService
	Actions       ActionService
	Assets        AssetService
	Users         UserService
	Notifications NotificationService
	Dashboard     DashboardService
	Tokens        TokenIssuer
}

// Config contains HTTP server configuration.
type Config struct {
	Services       Services
	Resolver       UserResolver
	MCP            http.Handler
	MaxUploadBytes int64
	AuthRateRPS    float64
	AuthRateBurst  int
	Logger         *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	svc            Services
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	srv := &Server{
		svc:            cfg.Services,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         cfg.Logger,
	}
	if srv.maxUploadBytes <= 0 {
		srv.maxUploadBytes = DefaultMaxUploadBytes
	}
	rps, burst := cfg.AuthRateRPS, cfg.AuthRateBurst
	if rps <= 0 {
		rps, burst = 1, 5
	}
	limiter := NewRateLimiter(rps, burst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.Middleware).Post("/register", srv.handleRegister)
		r.With(limiter.Middleware).Post("/login", srv.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Resolver))

			r.Get("/users", srv.handleListUsers)

			r.Get("/projects", srv.handleListProjects)
			r.Post("/projects/create", srv.handleCreateProject)
			r.Route("/projects/{id}", func(r chi.Router) {
				r.Get("/", srv.handleGetProject)
				r.Put("/edit", srv.handleEditProject)
				r.Put("/steps/{number}/assignee", srv.handleReassign)
				r.Post("/cancel", srv.handleCancel)
				r.Delete("/delete", srv.handleDeleteProject)
				r.Post("/forward", srv.handleForward)
				r.Post("/send-back", srv.handleSendBack)
				r.Post("/upload", srv.handleUpload)
				r.Get("/actions", srv.handleListActions)
				r.Get("/assets", srv.handleListAssets)
			})

			r.Get("/notifications", srv.handleListNotifications)
			r.Put("/notifications/{id}/read", srv.handleMarkRead)

			r.Get("/dashboard/stats", srv.handleStats)
		})
	})

	r.With(DownloadAuthMiddleware(cfg.Resolver)).Get("/uploads/{name}", srv.handleDownload)

	if cfg.MCP != nil {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Resolver))
			r.Handle("/mcp", cfg.MCP)
			r.Handle("/mcp/*", cfg.MCP)
		})
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// fail writes err to the client and logs anything that isn't the caller's fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := StatusFor(err); status >= 500 && s.logger != nil {
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeError(w, r, err, "")
}

// actor returns the authenticated user; AuthMiddleware guarantees it on protected routes.
func actor(r *http.Request) string {
	userID, _ := UserFromContext(r.Context())
	return userID
}
