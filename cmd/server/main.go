package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/auth"
	"github.com/rpggio/stepflow/internal/config"
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
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := ensureDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	blobs, err := storage.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	actionRepo := sqlite.NewActionRepository(db)
	assetRepo := sqlite.NewAssetRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)
	outboxRepo := sqlite.NewOutboxRepository(db)
	statsRepo := sqlite.NewStatsRepository(db)

	userSvc := user.NewService(userRepo, logger)
	projectSvc := project.NewService(projectRepo, logger)
	actionSvc := action.NewService(actionRepo, logger)
	assetSvc := asset.NewService(assetRepo, blobs, logger)
	notificationSvc := notification.NewService(notificationRepo, logger)
	dashboardSvc := dashboard.NewService(statsRepo, notificationSvc, logger)
	notifier := notification.NewNotifier(notificationRepo, outboxRepo, logger, notification.NotifierOptions{
		MinBackoff:   cfg.Notifier.MinBackoff,
		MaxBackoff:   cfg.Notifier.MaxBackoff,
		DrainTimeout: cfg.Notifier.DrainTimeout,
	})
	workflowSvc := workflow.NewService(projectRepo, actionSvc, assetSvc, userSvc, notifier, db, logger)
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL, userSvc)

	var mcpServer *sdkmcp.Server
	if cfg.MCP.Enabled || cfg.Transport.Mode == "stdio" {
		mcpServer = mcp.NewServer(mcp.Config{
			Services: mcp.Services{
				Workflow:      workflowSvc,
				Projects:      projectSvc,
				Actions:       actionSvc,
				Notifications: notificationSvc,
				Dashboard:     dashboardSvc,
			},
			Resolver:      tokens,
			TransportMode: cfg.Transport.Mode,
			StdioUser:     cfg.MCP.StdioUser,
			Logger:        logger,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Signals do not reach the notifier directly: it stops once the transport
	// has returned, after transitions still in flight have committed.
	notifyCtx, stopNotifier := context.WithCancel(context.WithoutCancel(ctx))
	defer stopNotifier()
	g.Go(func() error {
		return notifier.Run(notifyCtx)
	})

	if cfg.Transport.Mode == "stdio" {
		g.Go(func() error {
			defer stopNotifier()
			return runStdioMode(ctx, logger, mcpServer)
		})
		return g.Wait()
	}

	var mcpHandler http.Handler
	if mcpServer != nil {
		mcpHandler = sdkmcp.NewStreamableHTTPHandler(
			func(r *http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{
				SessionTimeout: 30 * time.Minute,
			},
		)
	}
	router := transport.NewServer(transport.Config{
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
		Resolver:       tokens,
		MCP:            mcpHandler,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		AuthRateRPS:    cfg.RateLimit.RPS,
		AuthRateBurst:  cfg.RateLimit.Burst,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		defer stopNotifier()
		return runHTTPMode(ctx, logger, httpServer)
	})
	return g.Wait()
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and keeps only its most recent bytes once it grows too large.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.truncateIfNeeded()
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end regardless of the offset.
	_, err = w.file.Write(buf[:n])
	return err
}
