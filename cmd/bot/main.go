package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/bot"
	"github.com/vidpulse/video-analytics-bot/internal/config"
	"github.com/vidpulse/video-analytics-bot/internal/db"
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

	if cfg.Telegram.Token == "" {
		logger.Log.Fatal("telegram token is required (APP_TELEGRAM_TOKEN)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	desc := schema.New()
	translator := gigachat.NewClient(&cfg.GigaChat, desc)
	validator := nlq.NewValidator(desc)
	executor := nlq.NewExecutor(pool, cfg.Pipeline.StatementTimeout, cfg.Pipeline.ConnectRetries)
	coordinator := nlq.NewCoordinator(translator, validator, executor, cfg.Pipeline.MaxAttempts)
	composer := nlq.NewComposer(cfg.Pipeline.MaxAnswerRows)

	var eventPublisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewAuditPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("audit publisher unavailable, question events will not be published",
				zap.Error(err))
		} else {
			defer publisher.Close()
			eventPublisher = publisher
		}
	}

	analytics := service.NewAnalyticsService(coordinator, composer, eventPublisher)

	b, err := bot.New(&cfg.Telegram, analytics)
	if err != nil {
		logger.Log.Fatal("failed to initialize bot", zap.Error(err))
	}

	logger.Log.Info("bot starting")
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Fatal("bot stopped", zap.Error(err))
	}
	logger.Log.Info("bot stopped gracefully")
}
