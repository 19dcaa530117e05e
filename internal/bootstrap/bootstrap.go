package bootstrap

import (
	"log/slog"
	"time"

	"github.com/dosipov/geotech-qa/internal/config"
	"github.com/dosipov/geotech-qa/internal/core/ports"
	"github.com/dosipov/geotech-qa/internal/core/usecase"
	"github.com/dosipov/geotech-qa/internal/infrastructure/calculators"
	"github.com/dosipov/geotech-qa/internal/infrastructure/chunking"
	"github.com/dosipov/geotech-qa/internal/infrastructure/embedding"
	"github.com/dosipov/geotech-qa/internal/infrastructure/llm/gemini"
	"github.com/dosipov/geotech-qa/internal/infrastructure/loader"
	"github.com/dosipov/geotech-qa/internal/infrastructure/resilience"
	"github.com/dosipov/geotech-qa/internal/infrastructure/vector/flat"
	"github.com/dosipov/geotech-qa/internal/observability/metrics"
)

// App wires the pipeline: one Gemini client shared by generation and
// embedding, the flat vector index over the markdown knowledge base,
// and the four pipeline stages behind the orchestrator.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Answerer ports.QuestionAnswerer
	Searcher ports.KnowledgeSearcher
	Builder  ports.IndexBuilder
}

func New(cfg config.Config, service string, logger *slog.Logger) *App {
	serverMetrics := metrics.NewHTTPServerMetrics(service)

	resCfg := resilience.DefaultConfig()
	resCfg.BreakerEnabled = cfg.LLMBreakerEnabled
	resCfg.BreakerOpenTimeout = time.Duration(cfg.LLMBreakerOpenTimeoutSecs * float64(time.Second))
	executor := resilience.NewExecutor(resCfg)
	llmTimeout := time.Duration(cfg.LLMTimeoutSecs * float64(time.Second))
	client := gemini.New(
		service,
		cfg.GeminiBaseURL,
		cfg.GeminiAPIKey,
		cfg.GeminiGenModel,
		cfg.GeminiEmbedModel,
		llmTimeout,
		executor,
		serverMetrics,
		logger,
	)
	embedder := gemini.NewEmbedder(client)

	cache := embedding.NewCache(cfg.EmbeddingCacheDir, logger)
	manager := embedding.NewManager(embedder, cache, logger)
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	documents := loader.New(cfg.KnowledgeBaseDir, logger)
	store := flat.NewStore(cfg.VectorStoreDir, documents, splitter, manager, logger)

	decision := usecase.NewDecisionStage(client, logger)
	compute := usecase.NewComputeDispatch(service, serverMetrics, logger, calculators.NewBearing(), calculators.NewSettlement())
	synthesis := usecase.NewSynthesisStage(client, logger)
	orchestrator := usecase.NewOrchestrator(service, decision, store, compute, synthesis, cfg.TopKResults, serverMetrics, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  serverMetrics,
		Answerer: orchestrator,
		Searcher: store,
		Builder:  store,
	}
}
