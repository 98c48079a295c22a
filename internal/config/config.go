package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL              string
	LLMModelName            string
	LLMAPIKey               string
	EmbeddingBaseURL        string
	EmbeddingModelName      string
	EmbeddingVectorSize     int
	DataDir                 string
	RetrieverK              int
	MaxSources              int
	KeepFraction            float64
	ImageRelevanceThreshold float64
	ImageURLPrefix          string
	QdrantURL               string
	QdrantCollection        string
	APIPort                 string
	LogLevel                LogLevel
	LogFormat               string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for a .env file
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		ImageURLPrefix:     getEnv("IMAGE_URL_PREFIX", "https://knowhiztutorrag.blob"),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// Parse EMBEDDING_VECTOR_SIZE
	// This must match the output vector size of the embeddings model; persisted
	// indexes and the Qdrant collection (if configured) are bound to it.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	cfg.RetrieverK, err = getEnvInt("RETRIEVER_K", 4)
	if err != nil {
		return nil, err
	}
	if cfg.RetrieverK <= 0 {
		return nil, fmt.Errorf("RETRIEVER_K must be greater than 0")
	}

	cfg.MaxSources, err = getEnvInt("MAX_SOURCES", 20)
	if err != nil {
		return nil, err
	}
	if cfg.MaxSources <= 0 {
		return nil, fmt.Errorf("MAX_SOURCES must be greater than 0")
	}

	cfg.KeepFraction, err = getEnvFloat("KEEP_FRACTION", 0.5)
	if err != nil {
		return nil, err
	}
	if cfg.KeepFraction <= 0 || cfg.KeepFraction > 1 {
		return nil, fmt.Errorf("KEEP_FRACTION must be in (0, 1]")
	}

	cfg.ImageRelevanceThreshold, err = getEnvFloat("IMAGE_RELEVANCE_THRESHOLD", 0.5)
	if err != nil {
		return nil, err
	}
	if cfg.ImageRelevanceThreshold < 0 || cfg.ImageRelevanceThreshold > 1 {
		return nil, fmt.Errorf("IMAGE_RELEVANCE_THRESHOLD must be in [0, 1]")
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// Create the data directory if it doesn't exist (holds per-document indexes)
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}
