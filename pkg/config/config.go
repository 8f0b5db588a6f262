package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	Embedding  EmbeddingConfig
	LLM        LLMConfig
	Retrieval  RetrievalConfig
	Validation ValidationConfig
	Chunking   ChunkingConfig
	Ingestion  IngestionConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
}

// ProviderConfig describes one generation provider. Providers are attempted
// in the order they appear in the config file.
type ProviderConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutSec int
}

type LLMConfig struct {
	Providers   []ProviderConfig
	Temperature float32
	MaxTokens   int
}

type RetrievalConfig struct {
	TopK      int
	Threshold float64
}

type ValidationConfig struct {
	Enabled   bool
	Threshold float64
}

type ChunkingConfig struct {
	Size    int
	Overlap int
}

type IngestionConfig struct {
	MaxFileSize       int
	MaxQuestionLength int
	UploadPerMinute   int
	QueryPerMinute    int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/docqa")

	viper.SetEnvPrefix("DOCQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.LLM.Providers) == 0 {
		config.LLM.Providers = defaultProviders()
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/docqa.db")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "doc_segments")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("embedding.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimension", 1536)

	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)

	viper.SetDefault("retrieval.topK", 5)
	viper.SetDefault("retrieval.threshold", 0.3)

	viper.SetDefault("validation.enabled", false)
	viper.SetDefault("validation.threshold", 0.5)

	viper.SetDefault("chunking.size", 1000)
	viper.SetDefault("chunking.overlap", 200)

	viper.SetDefault("ingestion.maxFileSize", 10485760)
	viper.SetDefault("ingestion.maxQuestionLength", 500)
	viper.SetDefault("ingestion.uploadPerMinute", 5)
	viper.SetDefault("ingestion.queryPerMinute", 20)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}

func defaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:       "gemini",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:      "gemini-2.0-flash",
			TimeoutSec: 30,
		},
		{
			Name:       "openrouter",
			BaseURL:    "https://openrouter.ai/api/v1",
			Model:      "qwen/qwen-2.5-7b-instruct:free",
			TimeoutSec: 30,
		},
	}
}
