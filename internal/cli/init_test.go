package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"vozruta/internal/config"
	"vozruta/internal/core"
	"vozruta/internal/log"
)

func TestSetupLoggerUsesConfiguredLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, log.ComponentWorker)

	if logger.Component() != log.ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
}

func TestInitBackendMemory(t *testing.T) {
	result := InitBackend(log.Discard(), &config.Config{DataBackend: "memory"})
	t.Cleanup(func() { _ = result.Cleanup() })

	repo, err := result.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := repo.Insert(context.Background(), core.Trip{
		Date: "2024-03-01", Section: core.SectionOutbound, Description: "Ana", Amount: 100,
	})
	if err != nil || id != 1 {
		t.Fatalf("insert = %d, %v", id, err)
	}
}

func TestGracefulShutdownStop(t *testing.T) {
	ctx, stop := GracefulShutdown(log.Discard())
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
}
