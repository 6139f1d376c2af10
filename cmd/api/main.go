package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/internship-market/internal/ai"
	"github.com/shinyyama/internship-market/internal/archive"
	"github.com/shinyyama/internship-market/internal/auth"
	"github.com/shinyyama/internship-market/internal/cache"
	"github.com/shinyyama/internship-market/internal/config"
	"github.com/shinyyama/internship-market/internal/db"
	"github.com/shinyyama/internship-market/internal/logger"
	appmw "github.com/shinyyama/internship-market/internal/middleware"
	"github.com/shinyyama/internship-market/internal/server"
	"github.com/shinyyama/internship-market/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Set with -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	zl, err := logger.New(cfg.GoEnv)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		zl.Fatal("token issuer init failed", zap.Error(err))
	}

	opts := server.Options{SHA: gitSHA, Build: buildTime}
	if cfg.FirebaseProjectID != "" {
		v, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			zl.Fatal("firebase auth init failed", zap.Error(err))
		}
		opts.Verifier = v
		zl.Info("employee auth uses firebase", zap.String("project", cfg.FirebaseProjectID))
	}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			zl.Warn("redis unavailable, product names are not cached", zap.Error(err))
		} else {
			defer rc.Close()
			opts.Cache = rc
		}
	}
	if cfg.GeminiAPIKey != "" {
		adv, err := ai.NewGeminiAdvisor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, zl)
		if err != nil {
			zl.Warn("gemini unavailable, offer advice disabled", zap.Error(err))
		} else {
			opts.Advisor = adv
		}
	}

	var archiver archive.Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.GoogleCredentialsFile)
		if err != nil {
			zl.Warn("gcs unavailable, sweep reports are not archived", zap.Error(err))
		} else {
			defer gcs.Close()
			archiver = gcs
		}
	}

	srv := server.New(cfg, zl, issuer, opts)

	loc, err := cfg.SweepLocation()
	if err != nil {
		zl.Fatal("sweep timezone", zap.Error(err))
	}
	sweeper, err := srv.NewSweeper(service.ExpirationConfig{
		GracePeriod: cfg.NegotiationGracePeriod,
		Hour:        cfg.SweepHour,
		Location:    loc,
	}, archiver)
	if err != nil {
		zl.Fatal("sweeper init failed", zap.Error(err))
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("addr", addr), zap.String("git_sha", gitSHA))
		errCh <- srv.Start(addr)
	}()

	// The listener comes up first; the database is injected once reachable.
	go func() {
		conn, err := db.ConnectWithRetry(ctx, func() (*gorm.DB, error) { return db.Connect(cfg) },
			2*time.Second, time.Minute, func(attempt int, err error) {
				zl.Error("db connect error, retrying", zap.Int("attempt", attempt), zap.Error(err))
			})
		if err != nil {
			zl.Warn("database never connected, expiration sweeps disabled", zap.Error(err))
			return
		}
		if err := db.Migrate(conn); err != nil {
			zl.Error("auto migrate error", zap.Error(err))
		}
		srv.SetDB(conn)
		zl.Info("database ready")

		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("expiration sweeper stopped", zap.Error(err))
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
