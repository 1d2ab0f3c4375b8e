package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/davec/filmscout/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeEscaper guards LIKE patterns against wildcard characters in
// titles (e.g. "100% Wolf").
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// MovieRepository handles normalized movie record storage.
type MovieRepository struct {
	db *gorm.DB
}

// NewMovieRepository creates a new MovieRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *MovieRepository: repository instance bound to db.
func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Upsert creates or overwrites a movie record keyed by the normalized
// title+year key. Re-ingesting the same title overwrites rather than
// duplicates.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - movie: movie record to create or update; Key is derived if unset.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *MovieRepository) Upsert(ctx context.Context, movie *domain.Movie) error {
	movie.EnsureKey()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(movie).Error
}

// GetByKey retrieves a movie by its normalized key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: normalized title+year key.
// Returns:
//   - *domain.Movie: movie record, nil when absent.
//   - error: non-nil if the lookup fails.
func (r *MovieRepository) GetByKey(ctx context.Context, key string) (*domain.Movie, error) {
	var movie domain.Movie
	err := r.db.WithContext(ctx).First(&movie, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByTitle retrieves the most recently updated movie whose
// normalized title matches, ignoring the year part of the key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - title: free-form title, normalized before matching.
// Returns:
//   - *domain.Movie: movie record, nil when absent.
//   - error: non-nil if the lookup fails.
func (r *MovieRepository) FindByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	normalized := domain.NormalizeTitle(title)
	var movie domain.Movie
	err := r.db.WithContext(ctx).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(normalized)+"|%").
		Order("updated_at DESC").
		First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetByKeys retrieves movies for the given keys, preserving no
// particular order.
func (r *MovieRepository) GetByKeys(ctx context.Context, keys []string) ([]domain.Movie, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var movies []domain.Movie
	if err := r.db.WithContext(ctx).Where("key IN ?", keys).Find(&movies).Error; err != nil {
		return nil, err
	}
	return movies, nil
}

// Count returns the number of stored movies.
func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Movie{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByKey removes a movie record.
func (r *MovieRepository) DeleteByKey(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&domain.Movie{}, "key = ?", key).Error
}
