package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/tripchat/internal/adapter/gtfsrt"
	"github.com/xiaot623/tripchat/internal/adapter/llm"
	"github.com/xiaot623/tripchat/internal/adapter/openmeteo"
	"github.com/xiaot623/tripchat/internal/adapter/otp"
	"github.com/xiaot623/tripchat/internal/adapter/photon"
	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/hub"
	"github.com/xiaot623/tripchat/internal/logging"
	"github.com/xiaot623/tripchat/internal/repository"
	"github.com/xiaot623/tripchat/internal/service"
	"github.com/xiaot623/tripchat/internal/tools"
	handler "github.com/xiaot623/tripchat/internal/transport/http"
	"github.com/xiaot623/tripchat/internal/transport/ws"
	"github.com/xiaot623/tripchat/policy"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, false)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting tripchat",
		"http_port", cfg.HTTPPort,
		"session_store", cfg.SessionStore,
		"llm_base_url", cfg.LLMBaseURL,
		"llm_model", cfg.LLMModel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile, cfg.DisabledTools)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	// Initialize tools
	catalog, err := tools.Builtin(tools.Backends{
		Geocoder: photon.NewClient(cfg.PhotonURL, cfg.ToolTimeout),
		Weather:  openmeteo.NewClient(cfg.OpenMeteoURL, cfg.ToolTimeout),
		Planner:  otp.NewClient(cfg.OTPURL, cfg.ToolTimeout),
		Feed:     gtfsrt.NewClient(cfg.STMFeedURL, cfg.STMAPIKey, cfg.ToolTimeout),
	})
	if err != nil {
		logger.Error("failed to build tool catalog", "error", err)
		os.Exit(1)
	}
	dispatcher := tools.NewDispatcher(catalog, policyEngine, cfg.ToolTimeout, logger.With("component", "tools"))

	// Initialize orchestrator
	systemPrompt, err := service.LoadSystemPrompt(cfg.PromptFile)
	if err != nil {
		logger.Error("failed to load system prompt", "error", err)
		os.Exit(1)
	}
	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)
	orchestrator := service.NewOrchestrator(llmClient, dispatcher, cfg.LLMModel, systemPrompt, logger.With("component", "orchestrator"))

	// Event hub
	eventHub := hub.New(logger.With("component", "hub"))
	go eventHub.Run(ctx)

	// Initialize service
	svc := service.New(store, orchestrator, eventHub, cfg, logger.With("component", "service"))

	// Create Echo server
	wsServer := ws.NewServer(cfg, eventHub, svc, logger.With("component", "ws"))
	server := handler.NewServer(svc, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	logger.Info("API started", "port", cfg.HTTPPort, "tools", catalog.Len())

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("tripchat stopped")
}
