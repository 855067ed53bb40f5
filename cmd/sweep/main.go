package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/waveai-auth/config"
	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/internal/container"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
)

// sweep deletes expired session records once, or repeatedly with -every.
func main() {
	every := flag.Duration("every", 0, "repeat the sweep at this interval until interrupted")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-sweep", cfg.Env)

	rdb, err := helpers.NewRedisClient(helpers.RedisOptions{
		URL:          cfg.RedisURL,
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisRWTimeout,
		WriteTimeout: cfg.RedisRWTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("redis client")
	}
	defer func() { _ = rdb.Close() }()

	c, err := container.NewCore(cfg, logger, rdb)
	if err != nil {
		logger.WithError(err).Fatal("failed to build services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *every > 0 {
		logger.WithField("every", every.String()).Info("sweeping until interrupted")
		application.RunSweeper(ctx, c.Manager, *every)
		return
	}

	start := time.Now()
	n, err := application.SweepOnce(ctx, c.Manager)
	if err != nil {
		logger.WithError(err).Fatal("sweep failed")
	}
	logger.WithField("deleted", n).WithField("took", time.Since(start).String()).Info("sweep finished")
}
