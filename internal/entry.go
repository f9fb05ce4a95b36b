// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notex/internal/api"
	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/mcpserver"
	"github.com/starford/notex/internal/prefs"
	"github.com/starford/notex/internal/search"
	"github.com/starford/notex/internal/sse"
	"github.com/starford/notex/internal/storage"
	"github.com/starford/notex/internal/watch"
	"github.com/starford/notex/internal/workspace"
)

// EventSearchUpdated carries the debounced search state to SSE clients.
const EventSearchUpdated = "search.updated"

var _ workspace.Publisher = (*sse.Broker)(nil)

// runtime is everything both entry points share: the index, the store
// and the watcher that keeps them in sync with the disk.
type runtime struct {
	ctx     context.Context
	logger  *slog.Logger
	db      *index.DB
	appData *storage.FS
	store   *workspace.Store
	bridge  *watch.Bridge

	// switchMu keeps the store, index and watcher bound to the same root.
	switchMu sync.Mutex

	mu    sync.Mutex
	files *storage.FS
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// open builds the runtime and activates the workspace. pub may be nil.
func (a *application) open(ctx context.Context, logger *slog.Logger, pub workspace.Publisher) (*runtime, error) {
	cfg := a.config
	root := a.workspaceRoot()

	appData, err := storage.EnsureFS(cfg.Workspace.AppData)
	if err != nil {
		return nil, fmt.Errorf("init app data: %w", err)
	}
	files, err := storage.EnsureFS(root)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	key, dir, err := workspace.ParseSort(cfg.Workspace.SortBy, cfg.Workspace.SortDirection)
	if err != nil {
		db.Close()
		return nil, err
	}
	storeOpts := []workspace.Option{
		workspace.WithIndex(db),
		workspace.WithSort(key, dir),
		workspace.WithAutoTitle(cfg.Timing.AutoTitleDelay, cfg.AutoTitle.Extensions, cfg.AutoTitle.MaxLength),
		workspace.WithDraftMaxLength(cfg.AutoTitle.DraftMaxLength),
		workspace.WithSavingIndicator(cfg.Timing.SavingIndicator),
	}
	if pub != nil {
		storeOpts = append(storeOpts, workspace.WithPublisher(pub))
	}
	store := workspace.New(storage.OpenFS, appData, logger, storeOpts...)
	if err := store.Start(ctx, files.Root()); err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("start workspace: %w", err)
	}

	rt := &runtime{ctx: ctx, logger: logger, db: db, appData: appData, files: files, store: store}
	rt.bridge = watch.NewBridge(watch.NewFSNotify(logger), cfg.Timing.WatchQuiet, rt.settle, logger)
	if err := rt.bridge.Start(ctx, files.Root()); err != nil {
		logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
	}
	return rt, nil
}

// settle runs once the disk has been quiet: reindex, then re-list.
func (rt *runtime) settle(ctx context.Context) {
	if err := index.Sync(rt.db, rt.workspace(), rt.logger); err != nil {
		rt.logger.Warn("sync failed", slog.String("error", err.Error()))
	}
	if err := rt.store.Refresh(ctx); err != nil {
		rt.logger.Warn("refresh failed", slog.String("error", err.Error()))
	}
}

func (rt *runtime) workspace() *storage.FS {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.files
}

// switchRoot activates another workspace directory. The watcher is bound to
// the application context, not to the caller's.
func (rt *runtime) switchRoot(ctx context.Context, root string) error {
	rt.switchMu.Lock()
	defer rt.switchMu.Unlock()

	files, err := storage.EnsureFS(root)
	if err != nil {
		return fmt.Errorf("open workspace %s: %w", root, err)
	}
	rt.bridge.Stop()
	rt.mu.Lock()
	rt.files = files
	rt.mu.Unlock()

	if err := index.Sync(rt.db, files, rt.logger); err != nil {
		rt.logger.Warn("sync failed", slog.String("error", err.Error()))
	}
	if err := rt.store.Start(ctx, files.Root()); err != nil {
		return err
	}
	if err := rt.bridge.Start(rt.ctx, files.Root()); err != nil {
		rt.logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
	}
	rt.logger.Info("workspace switched", slog.String("root", files.Root()))
	return nil
}

func (rt *runtime) close() {
	rt.bridge.Stop()
	rt.store.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("index close failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_root", app.workspaceRoot()),
		slog.String("app_data", cfg.Workspace.AppData),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	g, gCtx := errgroup.WithContext(ctx)

	broker := sse.NewBroker(cfg.Timing.SSECoalesce, workspace.EventNotesUpdated)
	defer broker.Close()

	rt, err := app.open(gCtx, logger, broker)
	if err != nil {
		return err
	}
	defer rt.close()

	prefsStore := prefs.Open(rt.appData, logger)
	searcher := search.New(rt.store.Search, cfg.Timing.SearchQuiet, logger, func(st search.State) {
		broker.Publish(EventSearchUpdated, st)
	})
	defer searcher.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.store.Snapshot(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(rt.store, searcher, prefsStore, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, rt.switchRoot))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g.Go(func() error {
		return workspace.NewAutosaver(rt.store, prefsStore.AutosaveSettings, logger).Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Flush the open note before the store goes away.
		saveCtx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.store.SaveActiveNote(saveCtx); err != nil {
			logger.Warn("final save failed", slog.String("error", err.Error()))
		}
		cancelSave()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	rt, err := app.open(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	files := rt.workspace()
	logger.Info("MCP server starting", slog.String("workspace_root", files.Root()))
	return mcpserver.New(rt.store, files, logger).ServeStdio()
}
