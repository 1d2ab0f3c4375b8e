package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davec/filmscout/internal/config"
	"github.com/davec/filmscout/internal/domain"
	applog "github.com/davec/filmscout/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection based on configuration and
// runs migrations. For sqlite, a corrupt or unreadable database file is
// treated as "start empty": the file is removed and recreated rather
// than failing startup.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = initPostgres(cfg, gormConfig)
		if err == nil && cfg.AutoMigrate {
			err = migrate(db)
		}
	case "sqlite", "":
		db, err = initSQLiteWithRecovery(cfg, gormConfig)
	default:
		applog.Warn("Unknown database driver %q, defaulting to sqlite", cfg.Driver)
		db, err = initSQLiteWithRecovery(cfg, gormConfig)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Movie{},
		&domain.MovieVector{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func initPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// PreferSimpleProtocol keeps compatibility with transaction poolers
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

// initSQLiteWithRecovery opens the sqlite index, and on open or
// migration failure resets the file once and retries with an empty
// index.
func initSQLiteWithRecovery(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := initSQLite(cfg, gormConfig)
	if err == nil && cfg.AutoMigrate {
		err = migrate(db)
	}
	if err == nil {
		return db, nil
	}

	if cfg.Path == "" {
		return nil, err
	}

	applog.Warn("Local index unreadable, reinitializing empty: path=%s, error=%v", cfg.Path, err)
	if rmErr := os.Remove(cfg.Path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("failed to reset database file: %w", rmErr)
	}

	db, err = initSQLite(cfg, gormConfig)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func initSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	} else {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// WAL for better concurrency
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}
