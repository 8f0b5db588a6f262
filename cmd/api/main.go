package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/api/handlers"
	"github.com/docqa/backend/internal/cache/redis"
	"github.com/docqa/backend/internal/chunker"
	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/generation"
	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/loaders"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/middleware/ratelimit"
	"github.com/docqa/backend/internal/middleware/security"
	"github.com/docqa/backend/internal/middleware/validation"
	"github.com/docqa/backend/internal/prompt"
	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/retrieval"
	"github.com/docqa/backend/internal/storage/sqlite"
	grounding "github.com/docqa/backend/internal/validation"
	milvusstore "github.com/docqa/backend/internal/vector/milvus"
	"github.com/docqa/backend/pkg/config"
	appLogger "github.com/docqa/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting document Q&A API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	ctx := context.Background()

	vectorStore, err := milvusstore.NewClient(
		ctx,
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Embedding.Dimension,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer vectorStore.Close()

	err = vectorStore.EnsureCollection(ctx)
	if err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	embedder := embedding.NewOpenAIEmbedder(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
		cache,
	)

	providers := make([]generation.Provider, 0, len(cfg.LLM.Providers))
	for _, pc := range cfg.LLM.Providers {
		providers = append(providers, generation.NewOpenAICompatProvider(generation.ProviderOptions{
			Name:        pc.Name,
			BaseURL:     pc.BaseURL,
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(pc.TimeoutSec) * time.Second,
		}))
	}

	orchestrator := generation.NewOrchestrator(providers, func(from, to string) {
		metrics.ProviderFallbacks.WithLabelValues(from, to).Inc()
	})

	retriever := retrieval.NewRetriever(embedder, vectorStore, cfg.Retrieval.TopK, cfg.Retrieval.Threshold)
	assembler := prompt.NewAssembler()

	var validator *grounding.Validator
	if cfg.Validation.Enabled {
		validator = grounding.NewValidator(embedder, cfg.Validation.Threshold)
	}

	engine := query.NewEngine(
		sqliteClient,
		cache,
		retriever,
		assembler,
		orchestrator,
		validator,
		time.Duration(cfg.Redis.TTLSec)*time.Second,
	)

	registry := loaders.NewRegistry()
	ch := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)
	processor := ingestion.NewProcessor(sqliteClient, vectorStore, embedder, registry, ch, cache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	uploadLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Ingestion.UploadPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer uploadLimiter.Stop()

	queryLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Ingestion.QueryPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer queryLimiter.Stop()

	questionValidator := validation.QueryMiddleware(validation.Config{
		MaxQuestionLength: cfg.Ingestion.MaxQuestionLength,
		Logger:            appLogger.GetLogger(),
	})

	queryHandler := handlers.NewQueryHandler(engine)
	documentHandler := handlers.NewDocumentHandler(processor, int64(cfg.Ingestion.MaxFileSize))
	wsHandler := handlers.NewWebSocketHandler(engine, cfg.Ingestion.MaxQuestionLength)

	api := app.Group("/api/v1")

	api.Post("/documents", uploadLimiter.Middleware(), documentHandler.UploadDocuments)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Get("/documents/stats", documentHandler.GetStats)
	api.Delete("/documents/:filename", documentHandler.DeleteDocument)
	api.Delete("/documents", documentHandler.ClearDocuments)

	api.Post("/query", queryLimiter.Middleware(), questionValidator, queryHandler.HandleQuery)
	api.Post("/query/stream", queryLimiter.Middleware(), questionValidator, queryHandler.HandleQueryStream)
	api.Get("/query/history", queryHandler.GetQueryHistory)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		appLogger.Info("Server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Shutdown error", zap.Error(err))
	}
}
