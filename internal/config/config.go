package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Redis      RedisConfig
	Recherche  RechercheConfig
	History    HistoryConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, wins over the individual fields
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	StaticDir      string
}

// RedisConfig holds the redis connection used for per-session search history
type RedisConfig struct {
	URL        string
	TTLSeconds int
	Enabled    bool
}

// RechercheConfig describes the upstream search endpoint used by the modal flow
// and the limits applied by the local /recherche implementation.
type RechercheConfig struct {
	APIBase      string // empty means the local backend answers in-process
	Timeout      int
	DefaultLimit int
	MaxLimit     int
}

// HistoryConfig holds search history settings
type HistoryConfig struct {
	Key   string
	Limit int
	Dir   string

	// in-memory session history, used by the server when redis is not configured
	MemoryTTLSeconds int
	MaxSessions      int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds the OpenAI-compatible embeddings configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON string for extra_body (e.g., {"truncate":"NONE"})
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "marketplace"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			Enabled:            getEnvAsBool("PG_ENABLED", true),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:      getEnv("STATIC_DIR", "./web/dist"),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			TTLSeconds: getEnvAsInt("REDIS_HISTORY_TTL", 0),
			Enabled:    getEnv("REDIS_URL", "") != "",
		},
		Recherche: RechercheConfig{
			APIBase:      getEnv("RECHERCHE_API_BASE", ""),
			Timeout:      getEnvAsInt("RECHERCHE_TIMEOUT", 15),
			DefaultLimit: getEnvAsInt("RECHERCHE_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("RECHERCHE_MAX_LIMIT", 100),
		},
		History: HistoryConfig{
			Key:              getEnv("HISTORY_KEY", "hero_search_history"),
			Limit:            getEnvAsInt("HISTORY_LIMIT", 50),
			Dir:              getEnv("HISTORY_DIR", ""),
			MemoryTTLSeconds: getEnvAsInt("HISTORY_MEMORY_TTL", 86400),
			MaxSessions:      getEnvAsInt("HISTORY_MAX_SESSIONS", 10000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	if cfg.History.Limit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.History.Limit)
	}
	if cfg.Recherche.DefaultLimit > cfg.Recherche.MaxLimit {
		cfg.Recherche.DefaultLimit = cfg.Recherche.MaxLimit
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
