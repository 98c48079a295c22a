package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"doctutor/internal/config"
	"doctutor/internal/docstore"
	"doctutor/internal/handlers"
	"doctutor/internal/http"
	"doctutor/internal/indexer"
	"doctutor/internal/llm"
	"doctutor/internal/rag"
	"doctutor/internal/summary"
	"doctutor/internal/tutor"
	"doctutor/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize document store (persists per-document indexes and metadata)
	store, err := docstore.NewStore(ctx, cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	slog.Info("Document store initialized", "data_dir", cfg.DataDir, "documents", len(store.Documents()))

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingVectorSize)

	// Initialize Qdrant vector store when configured (remote retrieval mode)
	var vectorStore *vectorstore.QdrantStore
	if cfg.QdrantURL != "" {
		vectorStore, err = vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingVectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)
	} else {
		slog.Info("No Qdrant URL configured, remote retrieval disabled")
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Ask the inference server to load the model in the background so the
	// first chat request doesn't pay the full load time
	go func() {
		if err := llm.NewPreloader(cfg.LLMBaseURL).Warm(context.Background(), cfg.LLMModelName); err != nil {
			slog.Warn("Model preload failed, first request will load it", "model", cfg.LLMModelName, "error", err)
		}
	}()

	// Create indexing pipeline, background ingestor, and attribution engine
	pipeline := indexer.NewPipeline(embedder, indexer.DefaultChunkSize)

	var remoteStore vectorstore.VectorStore
	if vectorStore != nil {
		remoteStore = vectorStore
	}
	ingestor := indexer.NewIngestor(pipeline, remoteStore, cfg.QdrantCollection)

	ragOpts := rag.Options{
		K:              cfg.RetrieverK,
		MaxSources:     cfg.MaxSources,
		KeepFraction:   cfg.KeepFraction,
		RelevanceFloor: cfg.ImageRelevanceThreshold,
		ImageURLPrefix: cfg.ImageURLPrefix,
	}
	refiner := rag.NewRefiner(llmClient, ragOpts)

	var remote rag.Retriever
	if remoteStore != nil {
		remote = rag.NewRemoteRetriever(remoteStore, embedder, cfg.QdrantCollection, nil)
	}
	engine := rag.NewEngine(pipeline, embedder, refiner, remote, ragOpts)
	slog.Info("Attribution engine initialized",
		"retriever_k", cfg.RetrieverK,
		"max_sources", cfg.MaxSources,
		"keep_fraction", cfg.KeepFraction,
	)

	// Create tutoring agent and summary generator
	agent := tutor.NewAgent(llmClient, llmClient, llmClient, engine)
	generator := summary.NewGenerator(llmClient, llmClient)

	// Create router with dependencies
	var checker handlers.CollectionChecker
	if vectorStore != nil {
		checker = vectorStore
	}
	deps := &http.Deps{
		Chat:      handlers.NewChatHandler(agent, store),
		Documents: handlers.NewDocumentsHandler(store, ingestor),
		Summary:   handlers.NewSummaryHandler(store, generator),
		Health:    handlers.NewHealthHandler(checker, cfg.QdrantCollection),
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
