package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalogue-rag/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "9020", cfg.Port)
	assert.Equal(t, "catalogue-db", cfg.DBHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 10, cfg.SearchTopK)
	assert.InDelta(t, 0.3, cfg.HybridAlpha, 1e-9)
	assert.Equal(t, "data/sparse_stats.json", cfg.SparseStatsPath)
	assert.Equal(t, 3, cfg.GenMaxAttempts)
	assert.Equal(t, 1024, cfg.SessionCapacity)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.OTelEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SEARCH_TOP_K", "25")
	t.Setenv("HYBRID_ALPHA", "0.7")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25, cfg.SearchTopK)
	assert.InDelta(t, 0.7, cfg.HybridAlpha, 1e-9)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "lots")
	t.Setenv("HYBRID_ALPHA", "half")

	cfg := config.Load()

	assert.Equal(t, 10, cfg.SearchTopK)
	assert.InDelta(t, 0.3, cfg.HybridAlpha, 1e-9)
}

func TestLoad_SecretFromFile(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("s3cret\n"), 0o600))
	t.Setenv("DB_PASSWORD_FILE", secretPath)

	cfg := config.Load()

	assert.Equal(t, "s3cret", cfg.DBPassword)
}

func TestLoad_DirectSecretWinsOverFile(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file"), 0o600))
	t.Setenv("DB_PASSWORD_FILE", secretPath)
	t.Setenv("DB_PASSWORD", "from-env")

	cfg := config.Load()

	assert.Equal(t, "from-env", cfg.DBPassword)
}
