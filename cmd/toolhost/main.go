// The toolhost binary is the task-tool subprocess consumed by the chat
// agent. It speaks line-delimited JSON-RPC on stdin/stdout and opens its own
// connection to the durable store, so it never shares process state with the
// API server. All logging goes to stderr; stdout belongs to the transport.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/internal/config"
	pgInfra "github.com/taskdeck/backend/internal/infrastructure/postgres"
	"github.com/taskdeck/backend/internal/toolhost"
	"github.com/taskdeck/backend/pkg/logger"
	"github.com/taskdeck/backend/repository/postgres"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:     cfg.Logger.Level,
		Encoding:  cfg.Logger.Encoding,
		UseStderr: true,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	taskRepo := postgres.NewTaskRepository(pool)
	handler := toolhost.NewToolHandler(taskUC.New(taskRepo, zapLogger), zapLogger)
	server := toolhost.NewServer(handler, "taskdeck-tools", version, zapLogger)

	zapLogger.Info("tool host starting on stdio")
	if err := server.Run(ctx); err != nil && err != context.Canceled {
		zapLogger.Fatal("tool host stopped", zap.Error(err))
	}
	zapLogger.Info("tool host stopped")
}
