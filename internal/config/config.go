package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	KnowledgeBaseDir  string `yaml:"knowledge_base_dir"`
	VectorStoreDir    string `yaml:"vector_store_dir"`
	EmbeddingCacheDir string `yaml:"embedding_cache_dir"`

	GeminiAPIKey     string  `yaml:"gemini_api_key"`
	GeminiBaseURL    string  `yaml:"gemini_base_url"`
	GeminiGenModel   string  `yaml:"gemini_gen_model"`
	GeminiEmbedModel string  `yaml:"gemini_embed_model"`
	LLMTimeoutSecs   float64 `yaml:"llm_timeout_secs"`

	LLMBreakerEnabled         bool    `yaml:"llm_breaker_enabled"`
	LLMBreakerOpenTimeoutSecs float64 `yaml:"llm_breaker_open_timeout_secs"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopKResults  int `yaml:"top_k_results"`

	MaxQuestionLength int `yaml:"max_question_length"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		KnowledgeBaseDir:  "./data/kb",
		VectorStoreDir:    "./data/vector_store",
		EmbeddingCacheDir: "./data/embeddings",

		GeminiBaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		GeminiGenModel:   "gemini-1.5-flash",
		GeminiEmbedModel: "text-embedding-004",
		LLMTimeoutSecs:   15.0,

		LLMBreakerEnabled:         true,
		LLMBreakerOpenTimeoutSecs: 30,

		ChunkSize:    400,
		ChunkOverlap: 100,
		TopKResults:  3,

		MaxQuestionLength: 2000,

		APIRateLimitRPS:   5,
		APIRateLimitBurst: 10,
		APIMaxInFlight:    32,
	}
}

// Load builds the configuration in three layers: compiled defaults,
// an optional YAML file (CONFIG_FILE, default ./config.yaml), then
// environment variables. Later layers win.
func Load() Config {
	cfg := defaults()
	applyFile(&cfg, mustEnv("CONFIG_FILE", "config.yaml"))

	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.KnowledgeBaseDir = mustEnv("KB_DIR", cfg.KnowledgeBaseDir)
	cfg.VectorStoreDir = mustEnv("VECTOR_STORE_DIR", cfg.VectorStoreDir)
	cfg.EmbeddingCacheDir = mustEnv("EMBEDDING_CACHE_DIR", cfg.EmbeddingCacheDir)

	cfg.GeminiAPIKey = mustEnv("GOOGLE_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiBaseURL = mustEnv("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiGenModel = mustEnv("LLM_MODEL", cfg.GeminiGenModel)
	cfg.GeminiEmbedModel = mustEnv("EMBEDDING_MODEL", cfg.GeminiEmbedModel)
	cfg.LLMTimeoutSecs = mustEnvFloat("LLM_TIMEOUT_SECONDS", cfg.LLMTimeoutSecs)

	cfg.LLMBreakerEnabled = mustEnvBool("LLM_BREAKER_ENABLED", cfg.LLMBreakerEnabled)
	cfg.LLMBreakerOpenTimeoutSecs = mustEnvFloat("LLM_BREAKER_OPEN_TIMEOUT_SECONDS", cfg.LLMBreakerOpenTimeoutSecs)

	cfg.ChunkSize = mustEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.TopKResults = mustEnvInt("TOP_K_RESULTS", cfg.TopKResults)

	cfg.MaxQuestionLength = mustEnvInt("MAX_QUESTION_LENGTH", cfg.MaxQuestionLength)

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)

	return cfg
}

func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	// A malformed file falls back to the layers below it.
	_ = yaml.Unmarshal(data, cfg)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
