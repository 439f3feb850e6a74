package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/config"
	"github.com/vidpulse/video-analytics-bot/internal/db"
	"github.com/vidpulse/video-analytics-bot/internal/db/repository"
	"github.com/vidpulse/video-analytics-bot/internal/loader"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var path string
	flag.StringVar(&path, "file", "", "Path to the JSON dump to load")
	flag.Parse()

	if path == "" {
		os.Stderr.WriteString("usage: loader -file <dump.json>\n")
		os.Exit(2)
	}

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	l := loader.New(
		repository.NewVideoRepository(pool),
		repository.NewSnapshotRepository(pool),
	)

	stats, err := l.LoadFile(ctx, path)
	if err != nil {
		logger.Log.Fatal("load failed", zap.Error(err))
	}

	logger.Log.Info("load finished",
		zap.String("file", path),
		zap.Int("videos", stats.Videos),
		zap.Int("snapshots", stats.Snapshots),
		zap.Int("skipped", stats.Skipped))
}
