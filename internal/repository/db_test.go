package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/davec/filmscout/internal/config"
)

func TestInitDBCreatesSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "index.db")
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        path,
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file was not created: %v", err)
	}

	count, err := NewMovieRepository(db).Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh index should be empty, got %d", count)
	}
}

func TestInitDBRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	garbage := []byte("definitely not a sqlite database, just some bytes on disk")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        path,
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB should recover by starting empty: %v", err)
	}

	repo := NewMovieRepository(db)
	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count after recovery: %v", err)
	}
	if count != 0 {
		t.Errorf("recovered index should be empty, got %d", count)
	}

	// The recovered index accepts writes.
	if err := repo.Upsert(context.Background(), testMovie("Fresh", "2024")); err != nil {
		t.Errorf("Upsert after recovery: %v", err)
	}
}

func TestInitDBDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: path, AutoMigrate: true}

	db, err := InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := NewMovieRepository(db).Upsert(context.Background(), testMovie("Persistent", "2020")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.Close()

	reopened, err := InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB reopen: %v", err)
	}
	got, err := NewMovieRepository(reopened).GetByKey(context.Background(), "persistent|2020")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got == nil {
		t.Error("record should survive a restart")
	}
}
