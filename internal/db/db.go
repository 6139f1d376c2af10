package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shinyyama/internship-market/internal/config"
	"github.com/shinyyama/internship-market/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func BuildDSN(cfg *config.Config) string {
	addr := cfg.DBHost

	// Prefer Cloud SQL unix socket when INSTANCE_CONNECTION_NAME is provided.
	switch {
	case cfg.InstanceConnectionName != "":
		addr = fmt.Sprintf("unix(/cloudsql/%s)", cfg.InstanceConnectionName)
	case strings.HasPrefix(cfg.DBHost, "tcp("), strings.HasPrefix(cfg.DBHost, "unix("):
	case strings.HasPrefix(cfg.DBHost, "/"):
		addr = fmt.Sprintf("unix(%s)", cfg.DBHost)
	default:
		addr = fmt.Sprintf("tcp(%s:%s)", cfg.DBHost, cfg.DBPort)
	}

	// loc=UTC keeps last_attempt comparisons independent of the server zone.
	return fmt.Sprintf("%s:%s@%s/%s?charset=utf8mb4&parseTime=True&loc=%s",
		cfg.DBUser, cfg.DBPassword, addr, cfg.DBName, url.QueryEscape("UTC"))
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	gcfg := &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}
	db, err := gorm.Open(mysql.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// Migrate creates or updates the tables of every model the service stores.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Negotiation{},
		&model.User{},
		&model.NegotiationEvent{},
	)
}

// ConnectWithRetry calls connect until it succeeds or ctx ends. The wait
// between attempts starts at wait and doubles up to maxWait. onError, if set,
// sees every failed attempt.
func ConnectWithRetry(ctx context.Context, connect func() (*gorm.DB, error), wait, maxWait time.Duration, onError func(attempt int, err error)) (*gorm.DB, error) {
	for attempt := 1; ; attempt++ {
		conn, err := connect()
		if err == nil {
			return conn, nil
		}
		if onError != nil {
			onError(attempt, err)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("gave up after %d attempts: %w", attempt, ctx.Err())
		case <-t.C:
		}
		if wait *= 2; wait > maxWait {
			wait = maxWait
		}
	}
}
