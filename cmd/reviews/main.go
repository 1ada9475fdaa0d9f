package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/internal/reviews"
	"github.com/richxcame/safari-bookings/pkg/cache"
	"github.com/richxcame/safari-bookings/pkg/config"
	"github.com/richxcame/safari-bookings/pkg/database"
	apperrors "github.com/richxcame/safari-bookings/pkg/errors"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
	"github.com/richxcame/safari-bookings/pkg/health"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/richxcame/safari-bookings/pkg/middleware"
	redisclient "github.com/richxcame/safari-bookings/pkg/redis"
	"github.com/richxcame/safari-bookings/pkg/resilience"
	"github.com/richxcame/safari-bookings/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "reviews-service"
	version     = "1.0.0"

	statisticsWindowHours = 24
	statisticsInterval    = 5 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Environment, serviceName); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting reviews service", zap.String("version", version))

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := apperrors.InitSentry(apperrors.DefaultSentryConfig(serviceName)); err != nil {
		log.Warn("Sentry disabled", zap.Error(err))
	} else {
		defer apperrors.Flush(2 * time.Second)
	}

	if _, err := tracing.InitTracer(rootCtx, tracing.ConfigFromEnv(serviceName, cfg.Server.Environment), log); err != nil {
		log.Warn("Failed to initialize tracer", zap.Error(err))
	}

	// Initialize database
	db, err := database.NewPostgresPool(rootCtx, &cfg.Database, serviceName)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	log.Info("Connected to database")

	// Redis backs the statistics cache and, optionally, the fingerprint store
	redis, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-process caches only", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		log.Info("Connected to Redis")
	}

	bus, err := eventbus.New(rootCtx, cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to event bus", zap.Error(err))
	}
	defer bus.Close()

	rules, err := fraud.LoadRules(cfg.Fraud.RulesFile)
	if err != nil {
		log.Fatal("Failed to load fraud rules", zap.String("path", cfg.Fraud.RulesFile), zap.Error(err))
	}

	fraudRepo := fraud.NewRepository(db)
	recent := fraud.NewRecentReviewIndex(cfg.Fraud.RecentIndexSize)

	var searchBreaker *resilience.CircuitBreaker
	if cfg.Fraud.SearchBreakerEnabled {
		searchBreaker = resilience.NewCircuitBreaker(
			resilience.SettingsFromConfig("review-text-search", cfg.Resilience.CircuitBreaker), nil)
	}

	fraudOpts := []fraud.Option{
		fraud.WithRules(rules),
		fraud.WithAnalyzerTimeout(cfg.Fraud.AnalyzerTimeout()),
		fraud.WithUserCache(cfg.Fraud.UserCacheSize, cfg.Fraud.UserCacheTTL()),
		fraud.WithSearcher(fraud.NewResilientSearcher(fraudRepo, recent, searchBreaker)),
	}
	switch {
	case cfg.Fraud.FingerprintBackend == "redis" && redis != nil:
		fraudOpts = append(fraudOpts, fraud.WithFingerprintStore(fraud.NewRedisFingerprintStore(redis, cfg.Fraud.ContentCacheTTL())))
	default:
		if cfg.Fraud.FingerprintBackend == "redis" {
			log.Warn("Redis fingerprint backend requested but Redis is unavailable, falling back to memory")
		}
		fraudOpts = append(fraudOpts, fraud.WithFingerprintStore(fraud.NewMemoryFingerprintStore(cfg.Fraud.ContentCacheSize, cfg.Fraud.ContentCacheTTL())))
	}
	if redis != nil {
		fraudOpts = append(fraudOpts, fraud.WithStatsCache(cache.NewManager(redis), cfg.Fraud.StatsCacheTTL()))
	}

	fraudService := fraud.NewService(fraudRepo, fraudOpts...)

	reviewService := reviews.NewService(reviews.NewRepository(db), fraudService, bus, recent)
	if err := reviews.NewConsumer(reviewService).Register(rootCtx, bus); err != nil {
		log.Fatal("Failed to subscribe to submitted reviews", zap.Error(err))
	}

	go reportStatistics(rootCtx, fraudService)

	// Operations listener: health checks and metrics only
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := health.NewRegistry(serviceName, version, 2*time.Second)
	registry.Register("database", health.DatabaseChecker(db))
	registry.Register("nats", health.NATSChecker(bus.Connected))
	if redis != nil {
		registry.Register("redis", health.RedisChecker(redis.Client))
	}
	registry.AddCircuitBreaker(searchBreaker)

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.RequestLogger())

	router.GET("/health/live", registry.LivenessHandler())
	router.GET("/health/ready", registry.ReadinessHandler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Operations listener starting", zap.String("port", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Operations listener failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down reviews service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Operations listener forced to shutdown", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Reviews service stopped")
}

// reportStatistics periodically logs the fraud summary for the last day
func reportStatistics(ctx context.Context, svc *fraud.Service) {
	ticker := time.NewTicker(statisticsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := svc.GetFraudStatistics(ctx, statisticsWindowHours)
			if err != nil {
				logger.WarnContext(ctx, "failed to load fraud statistics", zap.Error(err))
				continue
			}
			logger.InfoContext(ctx, "fraud statistics",
				zap.Int("time_range_hours", stats.TimeRangeHours),
				zap.Int("total_reviews", stats.TotalReviews),
				zap.Int("flagged_reviews", stats.FlaggedReviews),
				zap.Int("high_risk_reviews", stats.HighRiskReviews),
				zap.Float64("avg_risk_score", stats.AvgRiskScore),
			)
		}
	}
}
