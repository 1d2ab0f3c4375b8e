package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davec/filmscout/internal/domain"
	applog "github.com/davec/filmscout/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VectorRepository stores movie embeddings in the local index. Upserts
// for the same key are serialized; last writer wins.
type VectorRepository struct {
	db         *gorm.DB
	maxEntries int
	mu         sync.Mutex
}

// NewVectorRepository creates a new VectorRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - maxEntries: retention cap; 0 means unbounded.
// Returns:
//   - *VectorRepository: repository instance bound to db.
func NewVectorRepository(db *gorm.DB, maxEntries int) *VectorRepository {
	return &VectorRepository{db: db, maxEntries: maxEntries}
}

// Upsert inserts or overwrites the embedding for a key and refreshes
// its recency timestamp. When a retention cap is configured, the least
// recently upserted entries beyond the cap are evicted.
func (r *VectorRepository) Upsert(ctx context.Context, key string, vector []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := domain.MovieVector{
		Key:        key,
		Vector:     domain.Float32Array(vector),
		UpsertedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&entry).Error; err != nil {
		return err
	}

	return r.evictLocked(ctx)
}

// evictLocked drops the oldest entries beyond the retention cap.
func (r *VectorRepository) evictLocked(ctx context.Context) error {
	if r.maxEntries <= 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MovieVector{}).Count(&count).Error; err != nil {
		return err
	}
	excess := count - int64(r.maxEntries)
	if excess <= 0 {
		return nil
	}

	var victims []domain.MovieVector
	if err := r.db.WithContext(ctx).
		Order("upserted_at ASC").
		Limit(int(excess)).
		Find(&victims).Error; err != nil {
		return err
	}
	for _, v := range victims {
		if err := r.db.WithContext(ctx).Delete(&domain.MovieVector{}, "key = ?", v.Key).Error; err != nil {
			return err
		}
	}
	applog.Debug("Evicted %d vector entries over retention cap", len(victims))
	return nil
}

// All returns every stored vector, most recently upserted first. The
// caller scans the full set in process.
func (r *VectorRepository) All(ctx context.Context) ([]domain.MovieVector, error) {
	var vectors []domain.MovieVector
	if err := r.db.WithContext(ctx).
		Order("upserted_at DESC").
		Find(&vectors).Error; err != nil {
		return nil, err
	}
	return vectors, nil
}

// Get returns the stored vector for a key, nil when absent.
func (r *VectorRepository) Get(ctx context.Context, key string) (*domain.MovieVector, error) {
	var vec domain.MovieVector
	err := r.db.WithContext(ctx).First(&vec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vec, nil
}

// Count returns the number of indexed documents.
func (r *VectorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MovieVector{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes one entry from the index.
func (r *VectorRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&domain.MovieVector{}, "key = ?", key).Error
}
