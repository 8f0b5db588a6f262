package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/mcp"
	"github.com/docqa/backend/internal/retrieval"
	milvusstore "github.com/docqa/backend/internal/vector/milvus"
	"github.com/docqa/backend/pkg/config"
	appLogger "github.com/docqa/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Stdout carries the MCP protocol; logs must go elsewhere.
	logPath := cfg.Logging.OutputPath
	if logPath == "stdout" {
		logPath = "stderr"
	}
	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	embedder := embedding.NewOpenAIEmbedder(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
		nil,
	)

	retriever := retrieval.NewRetriever(embedder, vectorStore, cfg.Retrieval.TopK, cfg.Retrieval.Threshold)

	server, err := mcp.NewServer(retriever)
	if err != nil {
		appLogger.Fatal("Failed to create MCP server", zap.Error(err))
	}

	appLogger.Info("MCP server starting on stdio")
	if err := server.Run(ctx); err != nil {
		appLogger.Fatal("MCP server failed", zap.Error(err))
	}
}
