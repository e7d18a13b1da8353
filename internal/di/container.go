package di

import (
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"catalogue-rag/internal/adapter/harvest"
	"catalogue-rag/internal/adapter/llm"
	"catalogue-rag/internal/adapter/repository"
	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/infra/config"
	"catalogue-rag/internal/infra/httpclient"
	"catalogue-rag/internal/session"
	"catalogue-rag/internal/usecase"
	"catalogue-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	ChunkRepo domain.CatalogueChunkRepository
	MetaRepo  domain.DatasetMetadataRepository
	JobRepo   domain.HarvestJobRepository

	// Usecases
	SearchUsecase  usecase.SearchUsecase
	ExplainUsecase usecase.ExplainUsecase
	IndexUsecase   usecase.IndexDatasetUsecase
	HarvestUsecase usecase.HarvestUsecase

	// Session store for search results awaiting an explanation request
	Sessions *session.Store

	// Worker
	Worker *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Repositories
	chunkRepo := repository.NewCatalogueChunkRepository(pool)
	metaRepo := repository.NewDatasetMetadataRepository(pool)
	jobRepo := repository.NewHarvestJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(30 * time.Second)
	generatorHTTP := httpclient.NewPooledClient(120 * time.Second)
	moderationHTTP := httpclient.NewPooledClient(30 * time.Second)
	harvestHTTP := httpclient.NewPooledClient(60 * time.Second)

	// External clients
	embedder := llm.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, embedderHTTP)
	generator := llm.NewOllamaGenerator(cfg.OllamaURL, cfg.GenerationModel, generatorHTTP)
	grader := llm.NewGroundingGrader(cfg.OllamaURL, cfg.GraderModel, generatorHTTP)
	moderator := llm.NewModerationClient(cfg.ModerationURL, cfg.ModerationAPIKey, cfg.ModerationModel, moderationHTTP)

	// Domain services
	hasher := domain.NewSourceHashPolicy()
	chunker := domain.NewChunker()

	// The sparse-statistics artifact is optional: without it retrieval runs
	// dense-only until a rebuild produces one.
	var sparse domain.SparseEncoder
	if encoder, err := domain.LoadSparseEncoder(cfg.SparseStatsPath); err != nil {
		log.Warn("sparse_stats_unavailable",
			slog.String("path", cfg.SparseStatsPath),
			slog.String("error", err.Error()))
	} else {
		sparse = encoder
	}

	// Pipeline configs
	hybridCfg := usecase.HybridConfig{
		TopK:  cfg.SearchTopK,
		Alpha: cfg.HybridAlpha,
	}
	if err := hybridCfg.Validate(); err != nil {
		log.Error("invalid hybrid config", "error", err)
		os.Exit(1)
	}
	genCfg := usecase.GenerationConfig{
		MaxTokens:      cfg.GenMaxTokens,
		MaxAttempts:    cfg.GenMaxAttempts,
		InitialBackoff: time.Second,
	}

	// Usecases
	searchUsecase := usecase.NewSearchUsecase(chunkRepo, embedder, sparse, hybridCfg, log)
	explainUsecase := usecase.NewExplainUsecase(
		chunker, usecase.NewCitedPromptBuilder(), generator,
		usecase.NewOutputValidator(), moderator, grader, genCfg, log,
	)
	indexUsecase := usecase.NewIndexDatasetUsecase(
		metaRepo, chunkRepo, txManager, hasher, chunker, embedder, log,
	)

	// Harvesters
	registry := domain.NewHarvesterRegistry(
		harvest.NewADRClient(cfg.ADRBaseURL, harvestHTTP, cfg.HarvestRatePerSec, log),
		harvest.NewUKDSClient(cfg.UKDSBaseURL, harvestHTTP, cfg.HarvestRatePerSec, log),
		harvest.NewCDRCClient(cfg.CDRCBaseURL, harvest.CDRCCredentials{
			Username: cfg.CDRCUsername,
			Password: cfg.CDRCPassword,
		}, nil, log),
	)
	harvestUsecase := usecase.NewHarvestUsecase(registry, indexUsecase, log)

	// Session store
	sessions := session.NewStore(cfg.SessionCapacity, cfg.SessionTTL)

	// Worker
	jobWorker := worker.NewJobWorker(jobRepo, harvestUsecase, indexUsecase, log)

	return &ApplicationComponents{
		ChunkRepo:      chunkRepo,
		MetaRepo:       metaRepo,
		JobRepo:        jobRepo,
		SearchUsecase:  searchUsecase,
		ExplainUsecase: explainUsecase,
		IndexUsecase:   indexUsecase,
		HarvestUsecase: harvestUsecase,
		Sessions:       sessions,
		Worker:         jobWorker,
	}
}
