package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/config"
	"github.com/aulaplay/aula/internal/daemon"
	"github.com/aulaplay/aula/internal/progress"
	"github.com/aulaplay/aula/internal/queue"
	"github.com/aulaplay/aula/internal/repository"
	"github.com/aulaplay/aula/internal/storage/local"
	"github.com/aulaplay/aula/internal/storage/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pidFileName = "aulad.pid"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dataDir, err := cfg.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logFile, err := setupLogging(dataDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	pidPath := filepath.Join(dataDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	var publisher progress.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			// The queue is best-effort; the daemon still serves sessions
			// without it.
			slog.Warn("rabbitmq unavailable, progress events disabled", "error", err)
		} else {
			defer conn.Close()
			publisher = queue.NewProducer(conn)
		}
	}

	svc := progress.NewService(store, publisher, slog.Default())

	activitiesPath := cfg.ActivitiesPath
	if _, err := os.Stat(activitiesPath); os.IsNotExist(err) {
		activitiesPath = filepath.Join(dataDir, "activities")
	}
	registry := activity.NewRegistry(activitiesPath)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("load activities: %w", err)
	}
	slog.Info("activities loaded", "path", activitiesPath, "count", registry.Count())

	server := daemon.NewServer(cfg, registry, svc)

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// openStore selects the progress backend from configuration. The
// returned cleanup closes backend resources and may be nil.
func openStore(cfg *config.Config) (progress.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		store, err := local.NewStore(filepath.Join(cfg.DataDir, "progress"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewProgressStore(db), func() { db.Close() }, nil

	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("storage backend postgres requires DATABASE_URL")
		}
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if _, err := pool.Exec(context.Background(), repository.Schema); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewProgressRepository(pool), func() { pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func setupLogging(dataDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(dataDir, "logs", "aulad.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	// Also log to stderr for foreground mode.
	multiHandler := &multiHandler{
		handlers: []slog.Handler{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}),
		},
	}

	slog.SetDefault(slog.New(multiHandler))

	return logFile, nil
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
