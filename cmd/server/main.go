package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskdeck/backend/api/handler"
	"github.com/taskdeck/backend/internal/agent"
	"github.com/taskdeck/backend/internal/config"
	"github.com/taskdeck/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskdeck/backend/internal/infrastructure/postgres"
	"github.com/taskdeck/backend/internal/middleware"
	"github.com/taskdeck/backend/internal/router"
	"github.com/taskdeck/backend/internal/services/lifecycle"
	"github.com/taskdeck/backend/internal/toolhost"
	"github.com/taskdeck/backend/pkg/httpcontext"
	"github.com/taskdeck/backend/pkg/logger"
	"github.com/taskdeck/backend/repository/postgres"
	chatUC "github.com/taskdeck/backend/usecase/chat"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	convRepo := postgres.NewConversationRepository(pool)
	taskUseCase := taskUC.New(taskRepo, zapLogger)

	// The assistant is optional: without an API key the chat endpoint answers
	// 503 and everything else keeps working.
	var (
		responder  chatUC.Responder
		toolClient *toolhost.Client
	)
	if cfg.LLMConfigured() {
		connectCtx, connectCancel := context.WithTimeout(appCtx, cfg.ToolHost.StartupTimeout)
		toolClient, err = toolhost.Connect(connectCtx, cfg.ToolHost.Command, cfg.ToolHost.Args, zapLogger)
		connectCancel()
		if err != nil {
			zapLogger.Fatal("tool host connection failed", zap.Error(err))
		}
		manager.Register("toolhost", func(ctx context.Context) error {
			return toolClient.Close()
		})

		runner, err := agent.New(agent.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			MaxTurns: cfg.Chat.AgentMaxTurns,
		}, toolClient, zapLogger)
		if err != nil {
			zapLogger.Fatal("agent setup failed", zap.Error(err))
		}
		responder = runner
		zapLogger.Info("assistant configured", zap.String("model", cfg.LLM.Model))
	} else {
		zapLogger.Error("OPENROUTER_API_KEY is not set, chat endpoint will answer 503")
	}

	var toolPinger monitor.Pinger
	if toolClient != nil {
		toolPinger = toolClient
	}
	mon := monitor.New(pool, toolPinger, cfg.LLMConfigured(), 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	chatUseCase := chatUC.New(convRepo, responder, chatUC.Config{
		HistoryLimit: cfg.Chat.HistoryLimit,
		AgentTimeout: cfg.Chat.AgentTimeout,
	}, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Chat:   apiHandler.NewChatHandler(chatUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, cfg.AppName, version, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
