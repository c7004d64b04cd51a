package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/agorino/catalog-service/config"
	"github.com/agorino/catalog-service/internal/database"
	"github.com/agorino/catalog-service/internal/esindex"
	"github.com/agorino/catalog-service/internal/fetch"
	"github.com/agorino/catalog-service/internal/handlers"
	"github.com/agorino/catalog-service/internal/ingest"
	"github.com/agorino/catalog-service/internal/middleware"
	"github.com/agorino/catalog-service/internal/rewrite"
	"github.com/agorino/catalog-service/internal/search"
	"github.com/agorino/catalog-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	zlog.Logger = *logger

	logger.Info().Msg("Starting catalog service")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(ctx, dbURL, database.PoolOptions{
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := database.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to bootstrap schema")
	}
	logger.Info().Msg("Database ready")

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry init failed, continuing without it")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	fetcher, err := fetch.New(fetch.Options{
		CacheDir: cfg.Feeds.CacheDir,
		TTL:      cfg.Feeds.CacheTTL,
		Timeout:  cfg.Feeds.FetchTimeout,
		Retry: fetch.RetryConfig{
			MaxRetries:       cfg.RateLimit.MaxRetries,
			InitialBackoffMs: cfg.RateLimit.InitialBackoffMs,
			MaxBackoffMs:     cfg.RateLimit.MaxBackoffMs,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	var indexer *esindex.Indexer
	if cfg.Elasticsearch.Enabled {
		indexer, err = esindex.New(
			[]string{esAddress(cfg)},
			cfg.Elasticsearch.Username,
			cfg.Elasticsearch.Password,
			"",
		)
		if err != nil {
			// The mirror is best-effort; search never depends on it
			logger.Warn().Err(err).Msg("Elasticsearch unavailable, mirroring disabled")
			indexer = nil
		}
	}

	coordinator := ingest.NewCoordinator(fetcher, indexer,
		int64(cfg.Feeds.MaxConcurrent), cfg.Feeds.BatchSize)

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	scheduler := ingest.NewScheduler(coordinator, cfg.Feeds.RefreshInterval)
	go scheduler.Run(schedulerCtx)

	llm := rewrite.NewOpenAIClient(
		cfg.Rewriter.LLMAPIKey,
		cfg.Rewriter.LLMEndpoint,
		cfg.Rewriter.LLMModel,
		cfg.Rewriter.LLMTimeout,
	)
	var rewriter *rewrite.Rewriter
	if llm != nil {
		rewriter = rewrite.New(llm)
		logger.Info().Msg("Query rewriter: LLM tier enabled")
	} else {
		rewriter = rewrite.New(nil)
		logger.Info().Msg("Query rewriter: pattern tiers only")
	}

	store := database.SearchStore{}
	engine := search.NewEngineWithLimits(store, rewriter, search.Limits{
		MaxCandidates:  cfg.Search.MaxCandidates,
		DefaultPerPage: cfg.Search.DefaultPerPage,
		MaxPerPage:     cfg.Search.MaxPerPage,
	})
	suggester := search.NewSuggester(store)

	router := setupRouter(cfg, engine, suggester, coordinator)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func setupRouter(cfg *config.Config, engine *search.Engine, suggester *search.Suggester, coordinator *ingest.Coordinator) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	searchHandler := handlers.NewSearchHandler(engine)
	suggestionsHandler := handlers.NewSuggestionsHandler(suggester)
	adminHandler := handlers.NewAdminHandler(coordinator)

	limiter := middleware.NewIPRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: float64(cfg.RateLimit.RequestsPerSecond),
		BurstSize:         cfg.RateLimit.Burst,
	})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Cleanup(10 * time.Minute)
		}
	}()

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/")
	public.Use(limiter.Middleware())
	{
		public.GET("/search", searchHandler.Search)
		public.GET("/suggestions", suggestionsHandler.Suggestions)
		public.GET("/product/:id", handlers.GetProduct)
		public.GET("/product/:id/comparison", handlers.GetComparison)
		public.GET("/product/ean/:ean", handlers.GetProductByEAN)
		public.GET("/facets", handlers.GetFacets)
		public.GET("/shops", handlers.ListShops)
	}

	admin := router.Group("/")
	admin.Use(middleware.AdminAuth(cfg.Admin.APIKey))
	{
		admin.POST("/shops", handlers.CreateShop)
		admin.DELETE("/shops/:id", handlers.DeleteShop)
		admin.POST("/admin/process-feeds", adminHandler.ProcessFeeds)
		admin.POST("/admin/shops/:id/sync", adminHandler.SyncShop)
		admin.GET("/admin/stats", adminHandler.Stats)
	}

	return router
}

func esAddress(cfg *config.Config) string {
	scheme := "http"
	if cfg.Elasticsearch.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Elasticsearch.Host, cfg.Elasticsearch.Port)
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "catalog-service").Logger()
	return &logger
}
