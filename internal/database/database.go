package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loopflow/cadenza/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// Connect opens the database named by cfg.DatabaseURL. PostgreSQL URLs are the
// norm; a sqlite:// URL opens a local file for development.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, isSQLite := dialectorFor(cfg.DatabaseURL)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	slog.Info("database connected", "driver", dialector.Name())
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, bool) {
	if strings.HasPrefix(url, sqliteScheme) {
		return sqlite.Open(strings.TrimPrefix(url, sqliteScheme)), true
	}
	// SQLAlchemy-style driver suffixes are accepted for parity with existing deployments.
	url = strings.Replace(url, "postgresql+asyncpg://", "postgresql://", 1)
	url = strings.Replace(url, "postgresql+psycopg://", "postgresql://", 1)
	return postgres.Open(url), false
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
