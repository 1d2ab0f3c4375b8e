package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davec/filmscout/internal/domain"
)

const detailsJSON = `{
	"title": "Inception",
	"release_date": "2010-07-16",
	"overview": "A thief enters dreams to plant an idea.",
	"vote_average": 8.37,
	"runtime": 148,
	"poster_path": "/poster.jpg",
	"genres": [{"name": "Action"}, {"name": "Science Fiction"}],
	"credits": {
		"cast": [
			{"name": "Leonardo DiCaprio"},
			{"name": "Joseph Gordon-Levitt"},
			{"name": "Elliot Page"},
			{"name": "Tom Hardy"},
			{"name": "Ken Watanabe"},
			{"name": "Cillian Murphy"},
			{"name": "Marion Cotillard"}
		],
		"crew": [
			{"name": "Emma Thomas", "job": "Producer"},
			{"name": "Christopher Nolan", "job": "Director"}
		]
	},
	"videos": {
		"results": [
			{"name": "Clip", "key": "clip1", "site": "YouTube", "type": "Clip"},
			{"name": "Official Trailer", "key": "trailerkey", "site": "YouTube", "type": "Trailer"}
		]
	}
}`

func newTestAdapter(handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	return New(&Config{APIKey: "test-key", BaseURL: srv.URL}), srv
}

func TestSearchTwoStepLookup(t *testing.T) {
	var detailsAppend string
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/movie"):
			w.Write([]byte(`{"results": [{"id": 27205}, {"id": 99}]}`))
		case r.URL.Path == "/movie/27205":
			detailsAppend = r.URL.Query().Get("append_to_response")
			w.Write([]byte(detailsJSON))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer srv.Close()

	movie, err := adapter.Search(context.Background(), "Inception")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if detailsAppend != "credits,videos" {
		t.Errorf("append_to_response = %q", detailsAppend)
	}
	if movie.Key != "inception|2010" {
		t.Errorf("Key = %q", movie.Key)
	}
	if movie.Director != "Christopher Nolan" {
		t.Errorf("Director = %q", movie.Director)
	}
	if len(movie.Cast) != 5 {
		t.Errorf("cast should be capped at 5 names, got %v", movie.Cast)
	}
	if movie.Genre != "Action, Science Fiction" {
		t.Errorf("Genre = %q", movie.Genre)
	}
	if movie.Rating != "8.4/10" {
		t.Errorf("Rating = %q", movie.Rating)
	}
	if movie.Runtime != "148 min" {
		t.Errorf("Runtime = %q", movie.Runtime)
	}
	if movie.PosterURL != "https://image.tmdb.org/t/p/w500/poster.jpg" {
		t.Errorf("PosterURL = %q", movie.PosterURL)
	}
	if movie.TrailerURL != "https://youtube.com/watch?v=trailerkey" {
		t.Errorf("TrailerURL = %q", movie.TrailerURL)
	}
}

func TestSearchNoResults(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})
	defer srv.Close()

	_, err := adapter.Search(context.Background(), "No Such Film")
	if !domain.IsNotFound(err) {
		t.Errorf("kind = %s, want not_found", domain.KindOf(err))
	}
}

func TestSearchRateLimited(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := adapter.Search(context.Background(), "Anything")
	if domain.KindOf(err) != domain.KindQuota {
		t.Errorf("kind = %s, want quota_exceeded", domain.KindOf(err))
	}
}

func TestSearchDetailsStageFailure(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search/movie") {
			w.Write([]byte(`{"results": [{"id": 1}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := adapter.Search(context.Background(), "Anything")
	if err == nil {
		t.Fatal("expected an error from the details stage")
	}
	if domain.KindOf(err) != domain.KindNetwork {
		t.Errorf("kind = %s, want network_failure", domain.KindOf(err))
	}
}
