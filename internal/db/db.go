package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/model"
)

// open dials a DSN, choosing the driver by its scheme. SQLite DSNs are used
// for small single-host deployments and tests; Postgres everywhere else.
func open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func configurePool(db *gorm.DB, cfg *config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	return nil
}

// InitEventDB opens the movement-event database and runs its migrations.
func InitEventDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := open(cfg.EventDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event database: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}

	log.Println("Running event database migrations...")
	if err := db.AutoMigrate(
		&model.MovementEvent{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return db, nil
}

// InitProductDB opens the refurbishment system's database. Its schema is
// owned by that system: no migrations run here, all access is read-only.
func InitProductDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := open(cfg.ProductDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to product database: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}
