package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/mediscan/internal/config"
	"github.com/vbonduro/mediscan/internal/db"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/llm/claude"
	"github.com/vbonduro/mediscan/internal/llm/gemini"
	"github.com/vbonduro/mediscan/internal/llm/ollama"
	"github.com/vbonduro/mediscan/internal/logging"
	"github.com/vbonduro/mediscan/internal/photostore"
	"github.com/vbonduro/mediscan/internal/photostore/local"
	"github.com/vbonduro/mediscan/internal/photostore/memory"
	"github.com/vbonduro/mediscan/internal/service"
	"github.com/vbonduro/mediscan/internal/store"
	"github.com/vbonduro/mediscan/internal/web"
	"github.com/vbonduro/mediscan/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	gateway := newGateway(cfg, logger)
	if err := gateway.Ready(); err != nil {
		// Not fatal: every analysis reports the configuration error instead.
		logger.Warn("llm backend is not ready", "backend", gateway.Name(), "error", err)
	}

	photoStg, err := newPhotoStore(cfg)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	var server *web.Server
	if cfg.HistoryEnabled() {
		database, err := db.Open(cfg.HistoryDBPath)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return
		}
		defer closeDB(database, logger)

		analyses := store.NewAnalysisStore(database)
		svc := service.NewAnalysisService(gateway, analyses, cfg.AnalysisTimeout, logger)
		server = web.NewServer(svc, templates.FS, photoStg, analyses, logger)
	} else {
		svc := service.NewAnalysisService(gateway, nil, cfg.AnalysisTimeout, logger)
		server = web.NewServer(svc, templates.FS, photoStg, nil, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go server.PruneSessions(ctx, cfg.SessionTTL)

	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newGateway(cfg *config.Config, logger *slog.Logger) llm.Gateway {
	switch cfg.LLMBackend {
	case "claude":
		logger.Info("using Claude backend", "model", cfg.ClaudeModel)
		return claude.NewGateway(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.ClaudeBaseURL)
	case "ollama":
		logger.Info("using Ollama backend", "model", cfg.OllamaModel)
		return ollama.NewGateway(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using Gemini backend", "model", cfg.GeminiModel)
		return gemini.NewGateway(cfg.GeminiKey(), cfg.GeminiModel, cfg.GeminiBaseURL)
	}
}

func newPhotoStore(cfg *config.Config) (photostore.PhotoStore, error) {
	if cfg.PhotoBackend == "local" {
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	}
	return memory.NewMemoryPhotoStore(), nil
}

func closeDB(database *sql.DB, logger *slog.Logger) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
