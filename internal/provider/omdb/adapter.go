// Package omdb implements the movie-info adapter for the OMDb API.
package omdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/provider"
)

const (
	ProviderName   = "omdb"
	defaultBaseURL = "https://www.omdbapi.com/"
)

// Config holds the adapter settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter queries the OMDb API and normalizes its response.
type Adapter struct {
	client  *resty.Client
	apiKey  string
	baseURL string
	group   singleflight.Group
}

// New creates an OMDb adapter.
func New(cfg *Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &Adapter{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
	}
}

// Name returns the stable provider identifier.
func (a *Adapter) Name() string {
	return ProviderName
}

// omdbResponse mirrors the OMDb title-lookup payload.
type omdbResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	Awards     string `json:"Awards"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Search looks up a title on OMDb. Concurrent lookups for the same
// query are collapsed into a single request.
func (a *Adapter) Search(ctx context.Context, query string) (*domain.Movie, error) {
	if err := provider.ValidateQuery(query); err != nil {
		return nil, err
	}

	val, err, _ := a.group.Do(strings.ToLower(strings.TrimSpace(query)), func() (interface{}, error) {
		return a.search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return val.(*domain.Movie), nil
}

func (a *Adapter) search(ctx context.Context, query string) (*domain.Movie, error) {
	var result omdbResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey": a.apiKey,
			"t":      query,
			"plot":   "full",
		}).
		SetResult(&result).
		Get(a.baseURL)

	if err != nil {
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName,
			"request failed", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return nil, domain.NewProviderError(domain.KindQuota, ProviderName,
			"request rejected, key invalid or request limit reached", nil)
	case resp.StatusCode() != http.StatusOK:
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName,
			fmt.Sprintf("unexpected status %d", resp.StatusCode()), nil)
	}

	if result.Response == "False" {
		msg := result.Error
		if msg == "" {
			msg = "movie not found"
		}
		kind := domain.KindNotFound
		if strings.Contains(strings.ToLower(msg), "limit") {
			kind = domain.KindQuota
		}
		return nil, domain.NewProviderError(kind, ProviderName, msg, nil)
	}

	movie := &domain.Movie{
		Title:     result.Title,
		Year:      firstYear(result.Year),
		Director:  result.Director,
		Cast:      splitActors(result.Actors),
		Genre:     result.Genre,
		Plot:      result.Plot,
		PosterURL: normalizeNA(result.Poster),
		Rating:    formatRating(result.IMDbRating),
		Runtime:   normalizeNA(result.Runtime),
		Awards:    normalizeNA(result.Awards),
		Source:    ProviderName,
		Raw:       domain.RawPayload(resp.Body()),
	}
	movie.EnsureKey()

	return movie, nil
}

// firstYear trims series ranges like "2010–2014" down to the first year.
func firstYear(year string) string {
	year = strings.TrimSpace(year)
	for i, r := range year {
		if r < '0' || r > '9' {
			return year[:i]
		}
	}
	return year
}

func splitActors(actors string) domain.StringArray {
	actors = normalizeNA(actors)
	if actors == "" {
		return nil
	}
	parts := strings.Split(actors, ", ")
	out := make(domain.StringArray, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatRating(rating string) string {
	rating = normalizeNA(rating)
	if rating == "" {
		return ""
	}
	return rating + "/10"
}

// normalizeNA maps OMDb's "N/A" placeholder to the empty string.
func normalizeNA(v string) string {
	v = strings.TrimSpace(v)
	if v == "N/A" {
		return ""
	}
	return v
}
