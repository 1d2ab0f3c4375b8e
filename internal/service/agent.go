package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/logger"
	"github.com/davec/filmscout/internal/prompts"
	"github.com/davec/filmscout/internal/provider"
)

// Agent coordinates one conversation turn end to end: it asks the
// planner which tools to run, executes them sequentially, ingests any
// fetched records into the index, then composes the final answer from
// the accumulated results. A single turn is in flight at a time.
type Agent struct {
	planner *Planner
	chat    ChatCompleter
	store   *VectorStore

	omdb    provider.MovieSearcher
	tmdb    provider.MovieSearcher // nil when TMDB is not configured
	youtube provider.TrailerSearcher

	historyLimit int
	defaultTopK  int

	mu sync.Mutex
}

// AgentOptions carries the agent's tunables.
type AgentOptions struct {
	HistoryLimit int
	DefaultTopK  int
}

// NewAgent wires the coordinator. tmdb may be nil; the planner then
// degrades movie_details calls to movie_info.
func NewAgent(
	planner *Planner,
	chat ChatCompleter,
	store *VectorStore,
	omdb provider.MovieSearcher,
	tmdb provider.MovieSearcher,
	youtube provider.TrailerSearcher,
	opts AgentOptions,
) *Agent {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 3
	}
	return &Agent{
		planner:      planner,
		chat:         chat,
		store:        store,
		omdb:         omdb,
		tmdb:         tmdb,
		youtube:      youtube,
		historyLimit: opts.HistoryLimit,
		defaultTopK:  opts.DefaultTopK,
	}
}

// toolResult is the outcome of one executed tool call. On failure the
// note carries a human-readable description that flows into both the
// composition context and the answer's error list.
type toolResult struct {
	call     ToolCall
	summary  string
	movie    *domain.Movie
	trailers []domain.Trailer
	note     string
}

// ProcessQuery runs one full turn: plan, execute, ingest, compose. The
// user turn and the produced answer are appended to the session. On
// composition failure the turn fails terminally and nothing is appended;
// the session remains usable for the next turn.
func (a *Agent) ProcessQuery(ctx context.Context, session *Session, query string) (*domain.Answer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, provider.ErrEmptyQuery
	}

	turnID := uuid.New().String()
	ctx = logger.SetTurnID(ctx, turnID)
	start := time.Now()
	logger.CtxInfo(ctx, "Turn started: query=%q", query)

	history := session.ChatHistory(a.historyLimit)

	var results []toolResult
	var notes []string

	plan, err := a.planner.Plan(ctx, query, history)
	if err != nil {
		notes = append(notes, err.Error())
	}

	for round := 1; round <= MaxPlanRounds; round++ {
		if plan.Direct {
			break
		}
		for _, call := range plan.Calls {
			results = append(results, a.executeCall(ctx, call))
		}
		if round == MaxPlanRounds {
			break
		}
		plan, _ = a.planner.PlanFollowUp(ctx, query, summarizeResults(results))
	}

	// Fetched records enter the index before composition so each answer
	// leaves the store at least as informed as before it.
	for i := range results {
		if results[i].movie == nil {
			continue
		}
		if err := a.store.Upsert(ctx, results[i].movie); err != nil {
			logger.CtxWarn(ctx, "Failed to index fetched movie %q: %v", results[i].movie.Title, err)
			notes = append(notes, fmt.Sprintf("indexing failed for %s: %v", results[i].movie.Title, err))
		}
	}

	for _, r := range results {
		if r.note != "" {
			notes = append(notes, r.note)
		}
	}

	text, err := a.compose(ctx, query, history, results, notes)
	if err != nil {
		logger.CtxError(ctx, "Composition failed, turn abandoned: %v", err)
		return nil, domain.NewProviderError(domain.KindComposition, "agent",
			"could not compose an answer", err)
	}

	answer := &domain.Answer{
		Text:   text,
		Media:  pickMedia(results),
		Errors: notes,
	}

	session.Append(domain.Turn{Role: domain.RoleUser, Text: query})
	session.Append(domain.Turn{Role: domain.RoleAssistant, Text: answer.Text, Media: answer.Media})

	logger.CtxInfo(ctx, "Turn finished: tools=%d errors=%d duration=%s",
		len(results), len(notes), time.Since(start))
	return answer, nil
}

// executeCall dispatches one call from the closed tool set. Failures
// never abort the turn; they become notes for the composer.
func (a *Agent) executeCall(ctx context.Context, call ToolCall) toolResult {
	logger.CtxDebug(ctx, "Executing tool: %s(%q, k=%d)", call.Tool, call.Argument, call.K)
	res := toolResult{call: call}

	switch call.Tool {
	case ToolMovieInfo:
		res.movie, res.summary, res.note = a.searchMovie(ctx, a.omdb, call.Argument)
	case ToolMovieDetails:
		searcher := a.tmdb
		if searcher == nil {
			searcher = a.omdb
		}
		res.movie, res.summary, res.note = a.searchMovie(ctx, searcher, call.Argument)
	case ToolTrailerSearch:
		trailers, err := a.youtube.Search(ctx, call.Argument)
		if err != nil {
			res.note = fmt.Sprintf("trailer_search(%s) failed: %v", call.Argument, err)
			return res
		}
		res.trailers = trailers
		var lines []string
		for _, t := range trailers {
			lines = append(lines, fmt.Sprintf("- %s: %s", t.Title, t.URL))
		}
		res.summary = fmt.Sprintf("Trailers for %q:\n%s", call.Argument, strings.Join(lines, "\n"))
	case ToolSemanticSearch:
		matches, err := a.store.SemanticSearch(ctx, call.Argument, a.topK(call.K))
		if err != nil {
			res.note = fmt.Sprintf("semantic_search(%s) failed: %v", call.Argument, err)
			return res
		}
		res.summary = formatMatches(fmt.Sprintf("Local index matches for %q", call.Argument), matches)
	case ToolRecommend:
		matches, err := a.store.Recommend(ctx, call.Argument, a.topK(call.K))
		if err != nil {
			res.note = fmt.Sprintf("recommend(%s) failed: %v", call.Argument, err)
			return res
		}
		res.summary = formatMatches(fmt.Sprintf("Movies similar to %q", call.Argument), matches)
	}
	return res
}

func (a *Agent) searchMovie(ctx context.Context, searcher provider.MovieSearcher, query string) (*domain.Movie, string, string) {
	movie, err := searcher.Search(ctx, query)
	if err != nil {
		return nil, "", fmt.Sprintf("%s lookup for %q failed: %v", searcher.Name(), query, err)
	}
	return movie, movieSummary(movie), ""
}

func (a *Agent) topK(k int) int {
	if k <= 0 {
		return a.defaultTopK
	}
	return k
}

// compose asks the model for the final answer grounded in the tool
// results. Failed tools are surfaced so the answer can acknowledge
// missing information instead of inventing it.
func (a *Agent) compose(ctx context.Context, query string, history []ChatMessage, results []toolResult, notes []string) (string, error) {
	var b strings.Builder
	b.WriteString(query)

	if len(results) > 0 || len(notes) > 0 {
		b.WriteString("\n\nTool results:\n")
		b.WriteString(summarizeResults(results))
		for _, n := range notes {
			b.WriteString("\n[failed] ")
			b.WriteString(n)
		}
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: prompts.ComposerSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: "user", Content: b.String()})

	return a.chat.Complete(ctx, messages)
}

func summarizeResults(results []toolResult) string {
	var parts []string
	for _, r := range results {
		if r.summary != "" {
			parts = append(parts, r.summary)
		}
	}
	if len(parts) == 0 {
		return "(no tool results)"
	}
	return strings.Join(parts, "\n\n")
}

func movieSummary(m *domain.Movie) string {
	var b strings.Builder
	b.WriteString(m.SearchDocument())
	if m.Rating != "" {
		fmt.Fprintf(&b, " Rating: %s.", m.Rating)
	}
	if m.Runtime != "" {
		fmt.Fprintf(&b, " Runtime: %s.", m.Runtime)
	}
	if m.Awards != "" {
		fmt.Fprintf(&b, " Awards: %s.", m.Awards)
	}
	return b.String()
}

func formatMatches(header string, matches []domain.MovieSearchResult) string {
	if len(matches) == 0 {
		return header + ": none found in the local index."
	}
	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, header+":")
	for i, m := range matches {
		lines = append(lines, fmt.Sprintf("%d. %s (%s), similarity %.2f", i+1, m.Title, m.Year, m.Score))
	}
	return strings.Join(lines, "\n")
}

// pickMedia selects the first poster and first trailer across results.
func pickMedia(results []toolResult) domain.MediaRefs {
	var media domain.MediaRefs
	for _, r := range results {
		if media.PosterURL == "" && r.movie != nil && r.movie.PosterURL != "" {
			media.PosterURL = r.movie.PosterURL
		}
		if media.TrailerURL == "" {
			if r.movie != nil && r.movie.TrailerURL != "" {
				media.TrailerURL = r.movie.TrailerURL
			} else if len(r.trailers) > 0 {
				media.TrailerURL = r.trailers[0].URL
			}
		}
	}
	return media
}
