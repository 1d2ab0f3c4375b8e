// Package youtube implements the trailer-search adapter for the
// YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/provider"
)

const (
	ProviderName   = "youtube"
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	maxResults     = 3
)

// Config holds the adapter settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter searches YouTube for official movie trailers.
type Adapter struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// New creates a YouTube adapter.
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
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search finds trailer videos for the given title. The query is
// suffixed with "trailer official" to bias results toward trailers.
func (a *Adapter) Search(ctx context.Context, query string) ([]domain.Trailer, error) {
	if err := provider.ValidateQuery(query); err != nil {
		return nil, err
	}

	var result searchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":        a.apiKey,
			"q":          query + " trailer official",
			"part":       "snippet",
			"type":       "video",
			"maxResults": fmt.Sprintf("%d", maxResults),
		}).
		SetResult(&result).
		Get(a.baseURL + "/search")

	if err != nil {
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName,
			"request failed", err)
	}

	switch {
	case resp.StatusCode() == http.StatusForbidden, resp.StatusCode() == http.StatusTooManyRequests:
		msg := "quota exceeded or key rejected"
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, domain.NewProviderError(domain.KindQuota, ProviderName, msg, nil)
	case resp.StatusCode() != http.StatusOK:
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode())
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, domain.NewProviderError(domain.KindNetwork, ProviderName, msg, nil)
	}

	if len(result.Items) == 0 {
		return nil, domain.NewProviderError(domain.KindNotFound, ProviderName,
			"no trailer found", nil)
	}

	trailers := make([]domain.Trailer, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		trailers = append(trailers, domain.Trailer{
			Title:       item.Snippet.Title,
			URL:         "https://youtube.com/watch?v=" + item.ID.VideoID,
			VideoID:     item.ID.VideoID,
			Thumbnail:   item.Snippet.Thumbnails.High.URL,
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}

	return trailers, nil
}
