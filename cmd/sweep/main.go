package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shinyyama/internship-market/internal/archive"
	"github.com/shinyyama/internship-market/internal/config"
	"github.com/shinyyama/internship-market/internal/db"
	"github.com/shinyyama/internship-market/internal/logger"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/service"
	"go.uber.org/zap"
)

// sweep runs one expiration pass and exits; it is meant for cron jobs and manual recovery.
func main() {
	if err := run(); err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zl, err := logger.New(cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var archiver archive.Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.GoogleCredentialsFile)
		if err != nil {
			zl.Warn("gcs unavailable, report is not archived", zap.Error(err))
		} else {
			defer gcs.Close()
			archiver = gcs
		}
	}

	loc, _ := cfg.SweepLocation()
	history := service.NewNegotiationHistoryService(repository.NewNegotiationEventRepository(gdb), zl)
	sweeper, err := service.NewExpirationService(repository.NewNegotiationRepository(gdb), history, archiver, service.ExpirationConfig{
		GracePeriod: cfg.NegotiationGracePeriod,
		Hour:        cfg.SweepHour,
		Location:    loc,
	}, zl)
	if err != nil {
		return err
	}

	report, err := sweeper.SweepOnce(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d negotiations could not be canceled: %v", len(report.Failed), report.Failed)
	}
	return nil
}
