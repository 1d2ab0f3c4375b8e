package service

import (
	"context"
	"strings"
	"testing"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/provider"
)

// seqChat replays one scripted outcome per completion call.
type seqChat struct {
	steps []chatStep
	calls int
}

type chatStep struct {
	out string
	err error
}

func (s *seqChat) Complete(context.Context, []ChatMessage) (string, error) {
	if s.calls >= len(s.steps) {
		return "", nil
	}
	step := s.steps[s.calls]
	s.calls++
	return step.out, step.err
}

type fakeMovieSearcher struct {
	name   string
	movies map[string]*domain.Movie
	err    error
	calls  []string
}

func (f *fakeMovieSearcher) Name() string { return f.name }

func (f *fakeMovieSearcher) Search(_ context.Context, query string) (*domain.Movie, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.movies[strings.ToLower(query)]; ok {
		copied := *m
		copied.EnsureKey()
		return &copied, nil
	}
	return nil, domain.NewProviderError(domain.KindNotFound, f.name, "movie not found", nil)
}

type fakeTrailerSearcher struct {
	trailers []domain.Trailer
	err      error
	calls    []string
}

func (f *fakeTrailerSearcher) Name() string { return "youtube" }

func (f *fakeTrailerSearcher) Search(_ context.Context, query string) ([]domain.Trailer, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.trailers, nil
}

func inceptionFixture() *domain.Movie {
	return &domain.Movie{
		Title:     "Inception",
		Year:      "2010",
		Director:  "Christopher Nolan",
		Cast:      domain.StringArray{"Leonardo DiCaprio"},
		Genre:     "Sci-Fi",
		Plot:      "A thief infiltrates dreams.",
		PosterURL: "https://example.com/inception.jpg",
		Source:    "omdb",
	}
}

func newTestAgent(t *testing.T, chat ChatCompleter, omdb provider.MovieSearcher, youtube provider.TrailerSearcher) (*Agent, *VectorStore) {
	t.Helper()
	store, _ := newTestStore(t, 0, &keywordEmbedder{axes: []string{"dream", "space"}})
	planner := NewPlanner(chat, allTools())
	agent := NewAgent(planner, chat, store, omdb, nil, youtube, AgentOptions{})
	return agent, store
}

func TestAgentFullTurn(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[{"tool":"movie_info","argument":"Inception"},{"tool":"trailer_search","argument":"Inception"}]`},
		{out: `[]`},
		{out: "Inception is Christopher Nolan's 2010 heist thriller set inside dreams."},
	}}
	omdb := &fakeMovieSearcher{name: "omdb", movies: map[string]*domain.Movie{
		"inception": inceptionFixture(),
	}}
	youtube := &fakeTrailerSearcher{trailers: []domain.Trailer{
		{Title: "Inception Official Trailer", URL: "https://youtube.com/watch?v=trailer1"},
	}}

	agent, store := newTestAgent(t, chat, omdb, youtube)
	session := NewSession()

	answer, err := agent.ProcessQuery(context.Background(), session, "Who directed Inception?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if !strings.Contains(answer.Text, "Nolan") {
		t.Errorf("answer text = %q", answer.Text)
	}
	if len(answer.Errors) != 0 {
		t.Errorf("unexpected errors: %v", answer.Errors)
	}
	if answer.Media.PosterURL != "https://example.com/inception.jpg" {
		t.Errorf("poster = %q", answer.Media.PosterURL)
	}
	if answer.Media.TrailerURL != "https://youtube.com/watch?v=trailer1" {
		t.Errorf("trailer = %q", answer.Media.TrailerURL)
	}

	// Both turns recorded.
	if session.Len() != 2 {
		t.Errorf("session has %d turns, want 2", session.Len())
	}

	// The fetched record was ingested under its normalized key.
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("index count = %d, want 1", count)
	}
	results, err := store.SemanticSearch(context.Background(), "dream", 1)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 1 || results[0].Key != "inception|2010" {
		t.Errorf("indexed key mismatch: %+v", results)
	}
}

func TestAgentToolFailureSurfaces(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[{"tool":"movie_info","argument":"Inception"}]`},
		{out: `[]`},
		{out: "I could not reach the movie database, so here is what I know."},
	}}
	omdb := &fakeMovieSearcher{
		name: "omdb",
		err:  domain.NewProviderError(domain.KindQuota, "omdb", "request limit reached", nil),
	}

	agent, _ := newTestAgent(t, chat, omdb, &fakeTrailerSearcher{})
	answer, err := agent.ProcessQuery(context.Background(), NewSession(), "Who directed Inception?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(answer.Errors) == 0 {
		t.Fatal("tool failure should surface in answer errors")
	}
	if !strings.Contains(answer.Errors[0], "omdb") {
		t.Errorf("error note should name the provider: %q", answer.Errors[0])
	}
}

func TestAgentPlanningFailureFallsBack(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: "I don't feel like planning today."},
		{out: "Here is a direct answer without any lookups."},
	}}
	omdb := &fakeMovieSearcher{name: "omdb"}

	agent, _ := newTestAgent(t, chat, omdb, &fakeTrailerSearcher{})
	answer, err := agent.ProcessQuery(context.Background(), NewSession(), "Something vague")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !strings.Contains(answer.Text, "direct answer") {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Errors) == 0 {
		t.Error("planning failure should be noted in answer errors")
	}
	if len(omdb.calls) != 0 {
		t.Errorf("no tools should run on a direct fallback, got %v", omdb.calls)
	}
}

func TestAgentCompositionFailureIsTerminal(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[]`},
		{err: context.DeadlineExceeded},
	}}

	agent, _ := newTestAgent(t, chat, &fakeMovieSearcher{name: "omdb"}, &fakeTrailerSearcher{})
	session := NewSession()

	_, err := agent.ProcessQuery(context.Background(), session, "Anything")
	if err == nil {
		t.Fatal("expected composition failure")
	}
	if domain.KindOf(err) != domain.KindComposition {
		t.Errorf("error kind = %s, want composition_failure", domain.KindOf(err))
	}
	if session.Len() != 0 {
		t.Errorf("failed turn must not be recorded, session has %d turns", session.Len())
	}

	// The session stays usable for the next turn.
	chat.steps = append(chat.steps, chatStep{out: `[]`}, chatStep{out: "Recovered."})
	answer, err := agent.ProcessQuery(context.Background(), session, "Try again")
	if err != nil {
		t.Fatalf("ProcessQuery after failure: %v", err)
	}
	if answer.Text != "Recovered." {
		t.Errorf("answer = %q", answer.Text)
	}
}

func TestAgentFollowUpRoundRunsMoreTools(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[{"tool":"movie_info","argument":"Inception"}]`},
		{out: `[{"tool":"trailer_search","argument":"Inception"}]`},
		{out: "Answer built from two rounds of lookups."},
	}}
	omdb := &fakeMovieSearcher{name: "omdb", movies: map[string]*domain.Movie{
		"inception": inceptionFixture(),
	}}
	youtube := &fakeTrailerSearcher{trailers: []domain.Trailer{
		{Title: "Trailer", URL: "https://youtube.com/watch?v=t"},
	}}

	agent, _ := newTestAgent(t, chat, omdb, youtube)
	answer, err := agent.ProcessQuery(context.Background(), NewSession(), "Inception with trailer")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(omdb.calls) != 1 || len(youtube.calls) != 1 {
		t.Errorf("expected one call per round, got omdb=%v youtube=%v", omdb.calls, youtube.calls)
	}
	// Planning is bounded: one follow-up round, then composition.
	if chat.calls != 3 {
		t.Errorf("expected 3 model calls (plan, follow-up, compose), got %d", chat.calls)
	}
	if answer.Media.TrailerURL == "" {
		t.Error("trailer from the second round should be attached")
	}
}

func TestAgentSemanticSearchTool(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[{"tool":"semantic_search","argument":"dream movies","k":2}]`},
		{out: `[]`},
		{out: "You have one dream movie indexed: Inception."},
	}}

	agent, store := newTestAgent(t, chat, &fakeMovieSearcher{name: "omdb"}, &fakeTrailerSearcher{})
	if err := store.Upsert(context.Background(), inceptionFixture()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	answer, err := agent.ProcessQuery(context.Background(), NewSession(), "What dream movies do I know?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(answer.Errors) != 0 {
		t.Errorf("unexpected errors: %v", answer.Errors)
	}
}

func TestAgentRejectsEmptyQuery(t *testing.T) {
	agent, _ := newTestAgent(t, &seqChat{}, &fakeMovieSearcher{name: "omdb"}, &fakeTrailerSearcher{})
	if _, err := agent.ProcessQuery(context.Background(), NewSession(), "   "); err == nil {
		t.Error("expected an error for a blank query")
	}
}

func TestAgentDetailsDegradesToOMDbWhenTMDBNil(t *testing.T) {
	chat := &seqChat{steps: []chatStep{
		{out: `[{"tool":"movie_details","argument":"Inception"}]`},
		{out: `[]`},
		{out: "Details from the fallback provider."},
	}}
	omdb := &fakeMovieSearcher{name: "omdb", movies: map[string]*domain.Movie{
		"inception": inceptionFixture(),
	}}

	store, _ := newTestStore(t, 0, &keywordEmbedder{axes: []string{"dream"}})
	// movie_details stays available so the planner keeps the call; the
	// agent itself falls back to OMDb for execution.
	planner := NewPlanner(chat, allTools())
	agent := NewAgent(planner, chat, store, omdb, nil, &fakeTrailerSearcher{}, AgentOptions{})

	if _, err := agent.ProcessQuery(context.Background(), NewSession(), "Full details on Inception"); err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(omdb.calls) != 1 {
		t.Errorf("expected the OMDb fallback to be called, got %v", omdb.calls)
	}
}
