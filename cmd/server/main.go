package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"herosearch/internal/config"
	"herosearch/internal/handler"
	"herosearch/internal/logger"
	"herosearch/internal/metrics"
	"herosearch/internal/repository"
	"herosearch/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("hero search server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	gin.SetMode(cfg.Server.GinMode)
	m := metrics.New()

	// Local /recherche backend
	var searchService *service.SearchService
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		defer repo.Close()
		zl.Info("connected to PostgreSQL database")

		var embedder service.Embedder
		if cfg.OpenAI.Enabled {
			embedder = service.NewEmbeddingClient(&cfg.OpenAI, zl.Named("embeddings"))
			zl.Info("semantic search enabled",
				zap.String("api_base", cfg.OpenAI.APIBase),
				zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
			)
		} else {
			zl.Warn("OPENAI_API_KEY not set, /recherche uses full-text search only")
		}
		searchService = service.NewSearchService(repo, embedder, cfg.Recherche.DefaultLimit, m, zl.Named("recherche"))
	} else {
		zl.Warn("PostgreSQL disabled, /recherche is not served")
	}

	// History storage for the modal flow
	var storage service.Storage
	if cfg.Redis.Enabled {
		redisStorage, err := repository.NewRedisStorage(
			cfg.Redis.URL,
			"herosearch:",
			time.Duration(cfg.Redis.TTLSeconds)*time.Second,
		)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStorage.Close()
		storage = redisStorage
		zl.Info("search history stored in redis")
	} else {
		storage = repository.NewMemoryStorage(
			repository.WithMemoryTTL(time.Duration(cfg.History.MemoryTTLSeconds)*time.Second),
			repository.WithMaxEntries(cfg.History.MaxSessions),
		)
		zl.Warn("REDIS_URL not set, search history is kept in memory",
			zap.Int("max_sessions", cfg.History.MaxSessions),
			zap.Int("ttl_seconds", cfg.History.MemoryTTLSeconds),
		)
	}

	// The modal flow talks to the configured upstream, or in-process to the
	// local backend when no upstream is configured.
	var searcher service.Searcher
	switch {
	case cfg.Recherche.APIBase == "" && searchService != nil:
		searcher = searchService
		zl.Info("modal search uses the local /recherche backend")
	case cfg.Recherche.APIBase == "":
		zl.Fatal("no search backend: set RECHERCHE_API_BASE or enable PostgreSQL")
	default:
		searcher = service.NewRechercheClient(
			cfg.Recherche.APIBase,
			time.Duration(cfg.Recherche.Timeout)*time.Second,
			m,
		)
		zl.Info("modal search uses upstream", zap.String("api_base", cfg.Recherche.APIBase))
	}

	normalizer := service.NewNormalizer(nil, m)
	searchHandler := handler.NewSearchHandler(
		searcher,
		normalizer,
		storage,
		cfg.History.Key,
		cfg.History.Limit,
		m,
		zl.Named("search"),
	)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(zl.Named("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", handler.SessionHeader}
	corsConfig.ExposeHeaders = []string{handler.SessionHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "hero-search",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if searchService != nil {
		rechercheHandler := handler.NewRechercheHandler(searchService, zl.Named("recherche"))
		embeddingHandler := handler.NewEmbeddingHandler(searchService, cfg.OpenAI.EmbeddingDimensions)
		router.POST("/recherche", rechercheHandler.Recherche)
		router.POST("/api/v1/embeddings/batch", embeddingHandler.BatchUpdate)
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/search", searchHandler.Search)
		apiV1.GET("/history", searchHandler.History)
		apiV1.DELETE("/history", searchHandler.ClearHistory)
	}

	setupStaticFiles(router, cfg.Server.StaticDir, zl)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		zl.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}

// requestLogger logs one line per request
func requestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
