package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"longmail-backend/config"
	"longmail-backend/internal/logger"
	"longmail-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector := Dialector(cfg.DSN)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log := logger.Get()
	log.Info("running database migrations", zap.String("dialect", dialector.Name()))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableConstraints {
		if dialector.Name() != "postgres" {
			log.Warn("database constraints are only applied on postgres", zap.String("dialect", dialector.Name()))
		} else if err := applyPostgresDDL(db); err != nil {
			log.Warn("failed to apply some postgres constraints, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Dialector picks sqlite for file/memory DSNs and postgres for everything else.
func Dialector(dsn string) gorm.Dialector {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite") {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Train{},
		&model.Parcel{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresDDL backs the capacity invariant with CHECK constraints and
// indexes the unassigned pool scanned by every assignment pass.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE trains DROP CONSTRAINT IF EXISTS trains_weight_within_capacity;",
		"ALTER TABLE trains ADD CONSTRAINT trains_weight_within_capacity CHECK (current_weight <= max_weight);",
		"ALTER TABLE trains DROP CONSTRAINT IF EXISTS trains_volume_within_capacity;",
		"ALTER TABLE trains ADD CONSTRAINT trains_volume_within_capacity CHECK (current_volume <= max_volume);",
		"ALTER TABLE parcels DROP CONSTRAINT IF EXISTS parcels_size_non_negative;",
		"ALTER TABLE parcels ADD CONSTRAINT parcels_size_non_negative CHECK (weight >= 0 AND volume >= 0);",
		"CREATE INDEX IF NOT EXISTS idx_parcels_unassigned_pool ON parcels (created_at, id) WHERE train_id IS NULL AND is_active;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
