package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/config"
	"github.com/aulaplay/aula/internal/gate"
	mcpserver "github.com/aulaplay/aula/internal/mcp"
	"github.com/aulaplay/aula/internal/progress"
	"github.com/aulaplay/aula/internal/storage/local"
)

// cmdMCP starts the MCP server on stdio for tutor agent integration
func cmdMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("setup data directory: %w", err)
	}

	// Stdio carries the protocol; logs must stay off stdout.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	registry := activity.NewRegistry(cfg.ActivitiesPath)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("load activities: %w", err)
	}

	// The MCP server always uses the local store; agent sessions should
	// not contend with the daemon's database.
	store, err := local.NewStore(filepath.Join(cfg.DataDir, "progress"))
	if err != nil {
		return fmt.Errorf("create progress store: %w", err)
	}
	svc := progress.NewService(store, nil, slog.Default())

	var g gate.Gate = gate.Open{}
	if cfg.ParentPIN != "" {
		g = gate.NewPINGate(cfg.ParentPIN)
	}

	srv := mcpserver.NewServer(mcpserver.Config{
		Registry: registry,
		Progress: svc,
		Gate:     g,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return srv.ServeStdio(ctx)
}
