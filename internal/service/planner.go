package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/logger"
	"github.com/davec/filmscout/internal/prompts"
)

// ToolName identifies one tool in the closed planning set. The planner
// never dispatches outside this set; unknown names from the model are
// dropped during validation.
type ToolName string

const (
	ToolMovieInfo      ToolName = "movie_info"
	ToolMovieDetails   ToolName = "movie_details"
	ToolTrailerSearch  ToolName = "trailer_search"
	ToolSemanticSearch ToolName = "semantic_search"
	ToolRecommend      ToolName = "recommend"
)

// ToolCall is one planned tool invocation: a tagged variant from the
// closed set plus its typed argument payload.
type ToolCall struct {
	Tool     ToolName `json:"tool"`
	Argument string   `json:"argument"`
	K        int      `json:"k,omitempty"`
}

// Plan is the structured output of one planning round. Direct means
// the model chose (or the planner fell back) to answer without tools.
type Plan struct {
	Calls  []ToolCall
	Direct bool
}

// MaxPlanRounds bounds the plan→execute→replan loop for one turn.
const MaxPlanRounds = 2

const (
	planCacheSize = 128
	planCacheTTL  = 10 * time.Minute
)

// Planner asks the language model which tools to invoke for a query.
type Planner struct {
	chat      ChatCompleter
	available map[ToolName]bool
	cache     *expirable.LRU[string, *Plan]
}

// NewPlanner creates a planner over the given tool availability set.
// Tools absent from available (e.g. movie_details without a TMDB key)
// are rewritten or dropped during validation.
func NewPlanner(chat ChatCompleter, available map[ToolName]bool) *Planner {
	return &Planner{
		chat:      chat,
		available: available,
		cache:     expirable.NewLRU[string, *Plan](planCacheSize, nil, planCacheTTL),
	}
}

// Plan produces a tool plan for the query given the session history.
// On model or parse failure it returns a direct-answer fallback plan
// together with a planning_failure error so the caller can note the
// degradation; the returned plan is always usable.
func (p *Planner) Plan(ctx context.Context, query string, history []ChatMessage) (*Plan, error) {
	// History-free queries are cacheable; with history the same words
	// can mean something else.
	cacheable := len(history) == 0
	cacheKey := strings.ToLower(strings.TrimSpace(query))
	if cacheable {
		if cached, ok := p.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: prompts.PlannerSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: "user", Content: query})

	content, err := p.chat.Complete(ctx, messages)
	if err != nil {
		return directPlan(), domain.NewProviderError(domain.KindPlanning, "planner",
			"language model unavailable, answering without tools", err)
	}

	plan, err := p.parsePlan(content)
	if err != nil {
		logger.CtxWarn(ctx, "Unparseable tool plan, answering without tools: %v", err)
		return directPlan(), domain.NewProviderError(domain.KindPlanning, "planner",
			"invalid tool plan, answering without tools", err)
	}

	if cacheable {
		p.cache.Add(cacheKey, plan)
	}
	return plan, nil
}

// PlanFollowUp runs one bounded follow-up round: the first round's
// results are shown to the model, which may request further tools or
// an empty array to stop.
func (p *Planner) PlanFollowUp(ctx context.Context, query, resultsSummary string) (*Plan, error) {
	messages := []ChatMessage{
		{Role: "system", Content: prompts.PlannerSystemPrompt},
		{Role: "user", Content: query},
		{Role: "assistant", Content: "Tool results so far:\n" + resultsSummary},
		{Role: "user", Content: "Plan any additional tools still needed, or output [] if the results are sufficient."},
	}

	content, err := p.chat.Complete(ctx, messages)
	if err != nil {
		// Follow-up rounds are best effort; stop planning on failure.
		return directPlan(), nil
	}
	plan, err := p.parsePlan(content)
	if err != nil {
		return directPlan(), nil
	}
	return plan, nil
}

func directPlan() *Plan {
	return &Plan{Direct: true}
}

// parsePlan extracts the JSON array from the model output, tolerating
// prose or code fences around it, then validates each call against the
// closed tool set.
func (p *Planner) parsePlan(content string) (*Plan, error) {
	jsonStr, err := extractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var calls []ToolCall
	if err := json.Unmarshal([]byte(jsonStr), &calls); err != nil {
		return nil, fmt.Errorf("failed to parse tool plan: %w", err)
	}

	valid := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		call.Argument = strings.TrimSpace(call.Argument)
		switch call.Tool {
		case ToolMovieInfo, ToolMovieDetails, ToolTrailerSearch, ToolSemanticSearch, ToolRecommend:
		default:
			continue
		}
		if call.Argument == "" {
			continue
		}
		// Degrade movie_details to movie_info when TMDB is not configured.
		if call.Tool == ToolMovieDetails && !p.available[ToolMovieDetails] {
			call.Tool = ToolMovieInfo
		}
		if !p.available[call.Tool] {
			continue
		}
		if call.K < 0 || call.K > 10 {
			call.K = 0
		}
		valid = append(valid, call)
	}

	if len(valid) == 0 {
		return directPlan(), nil
	}
	return &Plan{Calls: valid}, nil
}

// extractJSONArray finds the first balanced top-level JSON array in the
// text. Brackets inside JSON strings are accounted for.
func extractJSONArray(content string) (string, error) {
	start := strings.Index(content, "[")
	if start == -1 {
		return "", fmt.Errorf("no JSON array found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("incomplete JSON array in response")
}
