package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HISTORY_MEMORY_TTL", "")
	t.Setenv("HISTORY_MAX_SESSIONS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.History.Limit)
	assert.Equal(t, 86400, cfg.History.MemoryTTLSeconds)
	assert.Equal(t, 10000, cfg.History.MaxSessions)
	assert.Equal(t, "hero_search_history", cfg.History.Key)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.OpenAI.Enabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("PG_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.PostgreSQL.Enabled)
}

func TestLoad_RejectsNonPositiveHistoryLimit(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.PostgreSQL.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.GetPostgreSQLDSN())
}
