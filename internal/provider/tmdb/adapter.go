// Package tmdb implements the secondary movie-info adapter for The
// Movie Database API. It is richer than OMDb for recent releases and
// also yields official trailers from the movie's videos list.
package tmdb

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
	ProviderName   = "tmdb"
	defaultBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL  = "https://image.tmdb.org/t/p/w500"
	maxCast        = 5
)

// Config holds the adapter settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter queries the TMDB API and normalizes its response.
type Adapter struct {
	client  *resty.Client
	apiKey  string
	baseURL string
	group   singleflight.Group
}

// New creates a TMDB adapter.
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

type searchResponse struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

type detailsResponse struct {
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int     `json:"runtime"`
	PosterPath  string  `json:"poster_path"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Name string `json:"name"`
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

// Search resolves a title via TMDB search, then fetches full details
// (credits and videos appended) for the most relevant match.
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
	var sr searchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": a.apiKey,
			"query":   query,
		}).
		SetResult(&sr).
		Get(a.baseURL + "/search/movie")

	if err != nil {
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName,
			"search request failed", err)
	}
	if err := a.checkStatus(resp.StatusCode(), "search"); err != nil {
		return nil, err
	}
	if len(sr.Results) == 0 {
		return nil, domain.NewProviderError(domain.KindNotFound, ProviderName,
			"movie not found", nil)
	}

	movieID := sr.Results[0].ID

	var dr detailsResponse
	resp, err = a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":            a.apiKey,
			"append_to_response": "credits,videos",
		}).
		SetResult(&dr).
		Get(fmt.Sprintf("%s/movie/%d", a.baseURL, movieID))

	if err != nil {
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName,
			"details request failed", err)
	}
	if err := a.checkStatus(resp.StatusCode(), "details"); err != nil {
		return nil, err
	}

	movie := &domain.Movie{
		Title:    dr.Title,
		Year:     releaseYear(dr.ReleaseDate),
		Director: director(&dr),
		Cast:     cast(&dr),
		Genre:    genres(&dr),
		Plot:     dr.Overview,
		Rating:   fmt.Sprintf("%.1f/10", dr.VoteAverage),
		Source:   ProviderName,
		Raw:      domain.RawPayload(resp.Body()),
	}
	if dr.PosterPath != "" {
		movie.PosterURL = posterBaseURL + dr.PosterPath
	}
	if dr.Runtime > 0 {
		movie.Runtime = fmt.Sprintf("%d min", dr.Runtime)
	}
	if t := firstTrailer(&dr); t != "" {
		movie.TrailerURL = t
	}
	movie.EnsureKey()

	return movie, nil
}

func (a *Adapter) checkStatus(status int, stage string) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusTooManyRequests:
		return domain.NewProviderError(domain.KindQuota, ProviderName,
			stage+" request rejected, key invalid or rate limited", nil)
	case status == http.StatusNotFound:
		return domain.NewProviderError(domain.KindNotFound, ProviderName,
			"movie not found", nil)
	case status != http.StatusOK:
		return domain.NewProviderError(domain.KindNetwork, ProviderName,
			fmt.Sprintf("%s request failed: status %d", stage, status), nil)
	}
	return nil
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func director(dr *detailsResponse) string {
	for _, person := range dr.Credits.Crew {
		if person.Job == "Director" {
			return person.Name
		}
	}
	return ""
}

func cast(dr *detailsResponse) domain.StringArray {
	n := len(dr.Credits.Cast)
	if n > maxCast {
		n = maxCast
	}
	out := make(domain.StringArray, 0, n)
	for _, person := range dr.Credits.Cast[:n] {
		if person.Name != "" {
			out = append(out, person.Name)
		}
	}
	return out
}

func genres(dr *detailsResponse) string {
	names := make([]string, 0, len(dr.Genres))
	for _, g := range dr.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return strings.Join(names, ", ")
}

// firstTrailer returns the first official YouTube trailer, if any.
func firstTrailer(dr *detailsResponse) string {
	for _, v := range dr.Videos.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return "https://youtube.com/watch?v=" + v.Key
		}
	}
	return ""
}
