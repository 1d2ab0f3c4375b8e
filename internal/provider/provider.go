// Package provider defines the contracts implemented by the external
// movie-data adapters. The agent depends only on these interfaces; each
// adapter normalizes its provider's response shape into domain records.
package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/davec/filmscout/internal/domain"
)

// ErrEmptyQuery is returned when an adapter is called with a blank query.
var ErrEmptyQuery = errors.New("provider: empty query")

// MovieSearcher looks up a single title on an external provider.
type MovieSearcher interface {
	// Name returns the stable provider identifier.
	Name() string

	// Search resolves a free-text title into a normalized Movie. On
	// failure it returns a *domain.ProviderError tagged with the
	// failure kind; it never panics.
	Search(ctx context.Context, query string) (*domain.Movie, error)
}

// TrailerSearcher finds trailer videos for a title.
type TrailerSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]domain.Trailer, error)
}

// ValidateQuery rejects blank queries before any network call is made.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}
