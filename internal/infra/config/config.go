package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL       string
	EmbeddingModel  string
	GenerationModel string
	GraderModel     string

	ModerationURL    string
	ModerationAPIKey string
	ModerationModel  string

	SearchTopK      int
	HybridAlpha     float64
	SparseStatsPath string
	GenMaxTokens    int
	GenMaxAttempts  int

	SessionCapacity int
	SessionTTL      time.Duration

	ADRBaseURL        string
	UKDSBaseURL       string
	CDRCBaseURL       string
	CDRCUsername      string
	CDRCPassword      string
	HarvestRatePerSec float64

	OTelEnabled bool
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "catalogue-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "catalogue_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "catalogue_password"),
		DBName:     getEnv("DB_NAME", "catalogue_db"),

		OllamaURL:       getEnv("OLLAMA_URL", "http://ollama:11434"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		GenerationModel: getEnv("GENERATION_MODEL", "gpt-oss20b-cpu"),
		GraderModel:     getEnv("GRADER_MODEL", "gpt-oss20b-cpu"),

		ModerationURL:    getEnv("MODERATION_URL", "https://api.openai.com"),
		ModerationAPIKey: getSecret("MODERATION_API_KEY", "MODERATION_API_KEY_FILE", ""),
		ModerationModel:  getEnv("MODERATION_MODEL", "omni-moderation-latest"),

		SearchTopK:      getEnvInt("SEARCH_TOP_K", 10),
		HybridAlpha:     getEnvFloat("HYBRID_ALPHA", 0.3),
		SparseStatsPath: getEnv("SPARSE_STATS_PATH", "data/sparse_stats.json"),
		GenMaxTokens:    getEnvInt("GEN_MAX_TOKENS", 512),
		GenMaxAttempts:  getEnvInt("GEN_MAX_ATTEMPTS", 3),

		SessionCapacity: getEnvInt("SESSION_CAPACITY", 1024),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_SECONDS", 1800)) * time.Second,

		ADRBaseURL:        getEnv("ADR_BASE_URL", "https://api-datacatalogue.adruk.org/api"),
		UKDSBaseURL:       getEnv("UKDS_BASE_URL", "https://oai.ukdataservice.ac.uk:8443/oai/provider"),
		CDRCBaseURL:       getEnv("CDRC_BASE_URL", "https://data.cdrc.ac.uk"),
		CDRCUsername:      getEnv("CDRC_USERNAME", ""),
		CDRCPassword:      getSecret("CDRC_PASSWORD", "CDRC_PASSWORD_FILE", ""),
		HarvestRatePerSec: getEnvFloat("HARVEST_RATE_PER_SEC", 5),

		OTelEnabled: getEnvBool("OTEL_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	// Secrets mounted as files (e.g. docker secrets) win over the fallback.
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
