package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/qda-labs/funnel/internal/config"
	"github.com/qda-labs/funnel/internal/discovery"
	"github.com/qda-labs/funnel/internal/llm"
	"github.com/qda-labs/funnel/internal/matching"
	"github.com/qda-labs/funnel/internal/pack"
	"github.com/qda-labs/funnel/internal/ranker"
	"github.com/qda-labs/funnel/internal/server"
	"github.com/qda-labs/funnel/internal/storage/sqlite"
	"github.com/qda-labs/funnel/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("funnel", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open trace store: %v", err)
	}
	defer store.Close()

	packs := pack.NewStore(cfg.Packs.Dir)

	catalog, err := matching.NewCatalog(cfg.Inventory.Services)
	if err != nil {
		log.Fatalf("Failed to load service catalog: %v", err)
	}
	directory, err := matching.NewDirectory(cfg.Inventory.Members, cfg.Inventory.Sectors, cfg.Inventory.Departments)
	if err != nil {
		log.Fatalf("Failed to load member directory: %v", err)
	}

	// The model client is optional: without an API key the deterministic
	// pipeline keeps serving, and calls that need the model fail with a
	// configuration error.
	var model llm.Client
	if cfg.Model.APIKey != "" {
		opts := []llm.ClientOption{
			llm.WithTimeout(time.Duration(cfg.Model.TimeoutSeconds) * time.Second),
		}
		if cfg.Model.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.Model.BaseURL))
		}
		client, err := llm.New(cfg.Model.APIKey, cfg.Model.Name, opts...)
		if err != nil {
			log.Fatalf("Failed to create model client: %v", err)
		}
		model = client
	} else {
		logger.Warn("no model API key configured, model-backed stages disabled")
	}

	var source discovery.FacetSource
	if cfg.Pipeline.ModelProposals {
		if model != nil {
			source = discovery.NewModelSource(model, logger)
		}
	} else {
		source = discovery.NewRuleSource()
	}

	var rank ranker.Ranker
	if cfg.Pipeline.ModelRanking && model != nil {
		rank = ranker.NewModel(model, logger)
	} else {
		rank = ranker.NewHeuristic()
	}

	handler := server.NewHandler(server.HandlerOptions{
		Logger:            logger,
		Store:             store,
		Packs:             packs,
		Source:            source,
		Ranker:            rank,
		Catalog:           catalog,
		Directory:         directory,
		Model:             model,
		MaxFacetQuestions: cfg.Pipeline.MaxFacetQuestions,
		MaxRefineRounds:   cfg.Pipeline.MaxRefineRounds,
	})

	srv := server.New(cfg.Server.Host, cfg.Server.Port, logger)
	handler.Register(srv.Router)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
