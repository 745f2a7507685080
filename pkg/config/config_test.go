package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.API.ListenAddress)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "ragdb", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Queue.Addr)
	assert.Equal(t, "document-ingest", cfg.Queue.Stream)
	assert.Equal(t, "embedding-workers", cfg.Queue.Group)
	assert.Equal(t, 5*time.Second, cfg.Queue.BlockTimeout)
	assert.Equal(t, 60*time.Second, cfg.Queue.ReclaimIdle)

	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Generation.Model)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "5433")
	t.Setenv("QUEUE_STREAM", "ingest-v2")
	t.Setenv("EMBEDDING_API_KEY", "sk-test")
	t.Setenv("GENERATION_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "ingest-v2", cfg.Queue.Stream)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
}

func TestLoadLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "legacy-db")
	t.Setenv("POSTGRES_DB", "docs")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("OPENROUTER_API_KEY", "sk-router")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy-db", cfg.Database.Host)
	assert.Equal(t, "docs", cfg.Database.Database)
	assert.Equal(t, "redis.internal:6379", cfg.Queue.Addr)
	assert.Equal(t, "sk-legacy", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-router", cfg.Generation.APIKey)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "ragdb",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=ragdb sslmode=disable",
		cfg.DSN())
}
