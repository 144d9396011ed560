package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/task-manager-api/internal/config"
	"github.com/phrazzld/task-manager-api/internal/events"
	"github.com/phrazzld/task-manager-api/internal/jobs"
	"github.com/phrazzld/task-manager-api/internal/notify"
	"github.com/phrazzld/task-manager-api/internal/platform/postgres"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/phrazzld/task-manager-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests and queued
// notification jobs get to finish after a shutdown signal.
const shutdownTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	tokens      auth.TokenService
	userService service.UserService
	taskService service.TaskService

	emitter    *events.InMemoryEventEmitter
	jobQueue   *jobs.Queue
	workerPool *jobs.WorkerPool
}

// newApplication wires the Postgres stores into the application.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	users := postgres.NewPostgresUserStore(db, hasher, logger)
	tasks := postgres.NewPostgresTaskStore(db, logger)

	app, err := newApplicationWithStores(cfg, logger, users, tasks, hasher, db)
	if err != nil {
		return nil, err
	}
	app.db = db
	return app, nil
}

// newApplicationWithStores builds services, the notification pipeline and
// the router dependencies on top of the given stores. txb may be nil, in
// which case account deletion runs without a transaction.
func newApplicationWithStores(
	cfg *config.Config,
	logger *slog.Logger,
	users store.UserStore,
	tasks store.TaskStore,
	hasher auth.PasswordHasher,
	txb store.TxBeginner,
) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		userStore: users,
		taskStore: tasks,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.tokens, err = auth.NewTokenService(jwtService, users, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	// Account notifications run on the background worker pool.
	app.jobQueue = jobs.NewQueue(cfg.Notify.QueueSize, logger)
	app.workerPool = jobs.NewWorkerPool(app.jobQueue, workerPoolConfig(cfg.Notify), logger)
	notifier, err := notify.NewHandler(app.jobQueue, notify.NewLogMailer(logger), cfg.Notify.FromAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification handler: %w", err)
	}
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(notifier)

	deleter, err := service.NewCascadeDeleter(users, tasks, txb, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cascade deleter: %w", err)
	}

	app.userService, err = service.NewUserService(users, app.tokens, hasher, deleter, nil, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down,
// drains queued notification jobs and closes the database.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:      app.setupRouter(),
		ReadTimeout:  time.Duration(app.config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(app.config.Server.WriteTimeoutSeconds) * time.Second,
	}

	app.workerPool.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		app.cleanup(shutdownCtx)
		if err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.logger.Info("server shutdown completed")
	return nil
}

// cleanup stops accepting notification jobs, waits for queued ones and
// closes the database connection.
func (app *application) cleanup(ctx context.Context) {
	if app.jobQueue != nil {
		app.jobQueue.Close()
	}
	if app.workerPool != nil {
		if err := app.workerPool.Stop(ctx); err != nil {
			app.logger.Warn("notification jobs abandoned at shutdown", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}

// workerPoolConfig applies the configured worker count over the pool
// defaults. A non-positive count keeps the default.
func workerPoolConfig(cfg config.NotifyConfig) jobs.WorkerPoolConfig {
	poolConfig := jobs.DefaultWorkerPoolConfig()
	if cfg.WorkerCount > 0 {
		poolConfig.WorkerCount = cfg.WorkerCount
	}
	return poolConfig
}
