package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/config"
	"github.com/vidpulse/video-analytics-bot/internal/db"
	"github.com/vidpulse/video-analytics-bot/internal/handler"
	"github.com/vidpulse/video-analytics-bot/internal/nlq"
	"github.com/vidpulse/video-analytics-bot/internal/nlq/gigachat"
	"github.com/vidpulse/video-analytics-bot/internal/schema"
	"github.com/vidpulse/video-analytics-bot/internal/service"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	logger.Log.Info("database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))

	desc := schema.New()
	translator := gigachat.NewClient(&cfg.GigaChat, desc)
	validator := nlq.NewValidator(desc)
	executor := nlq.NewExecutor(pool, cfg.Pipeline.StatementTimeout, cfg.Pipeline.ConnectRetries)
	coordinator := nlq.NewCoordinator(translator, validator, executor, cfg.Pipeline.MaxAttempts)
	composer := nlq.NewComposer(cfg.Pipeline.MaxAnswerRows)

	var publisher *service.AuditPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = service.NewAuditPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("audit publisher unavailable, question events will not be published",
				zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	var eventPublisher service.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	analytics := service.NewAnalyticsService(coordinator, composer, eventPublisher)

	questionHandler := handler.NewQuestionHandler(analytics)
	var healthPublisher interface{ IsHealthy() bool }
	if publisher != nil {
		healthPublisher = publisher
	}
	healthHandler := handler.NewHealthHandler(pool, healthPublisher)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/api/v1/questions", questionHandler.AskQuestion)
	router.GET("/health", healthHandler.LivenessProbe)
	router.GET("/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // questions may spend the full retry budget
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			_ = server.Close()
			os.Exit(1)
		}
		logger.Log.Info("server stopped gracefully")
	}
}
