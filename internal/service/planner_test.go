package service

import (
	"context"
	"errors"
	"testing"

	"github.com/davec/filmscout/internal/domain"
)

// scriptedChat replays canned completions in order.
type scriptedChat struct {
	responses []string
	err       error
	calls     int
	lastMsgs  []ChatMessage
}

func (s *scriptedChat) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	s.lastMsgs = messages
	if s.err != nil {
		return "", s.err
	}
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func allTools() map[ToolName]bool {
	return map[ToolName]bool{
		ToolMovieInfo:      true,
		ToolMovieDetails:   true,
		ToolTrailerSearch:  true,
		ToolSemanticSearch: true,
		ToolRecommend:      true,
	}
}

func TestPlannerParsesPlan(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []ToolCall
		direct   bool
	}{
		{
			name:     "bare array",
			response: `[{"tool":"movie_info","argument":"Inception"}]`,
			want:     []ToolCall{{Tool: ToolMovieInfo, Argument: "Inception"}},
		},
		{
			name:     "prose around array",
			response: "Sure, here is the plan:\n[{\"tool\":\"trailer_search\",\"argument\":\"Dune\"}]\nLet me know!",
			want:     []ToolCall{{Tool: ToolTrailerSearch, Argument: "Dune"}},
		},
		{
			name:     "code fence",
			response: "```json\n[{\"tool\":\"semantic_search\",\"argument\":\"heist movies\",\"k\":3}]\n```",
			want:     []ToolCall{{Tool: ToolSemanticSearch, Argument: "heist movies", K: 3}},
		},
		{
			name:     "bracket inside argument string",
			response: `[{"tool":"movie_info","argument":"Movie [Director's Cut]"}]`,
			want:     []ToolCall{{Tool: ToolMovieInfo, Argument: "Movie [Director's Cut]"}},
		},
		{
			name:     "unknown tool dropped",
			response: `[{"tool":"web_search","argument":"x"},{"tool":"recommend","argument":"Heat"}]`,
			want:     []ToolCall{{Tool: ToolRecommend, Argument: "Heat"}},
		},
		{
			name:     "blank argument dropped",
			response: `[{"tool":"movie_info","argument":"  "},{"tool":"movie_info","argument":"Alien"}]`,
			want:     []ToolCall{{Tool: ToolMovieInfo, Argument: "Alien"}},
		},
		{
			name:     "out of range k reset",
			response: `[{"tool":"recommend","argument":"Heat","k":50}]`,
			want:     []ToolCall{{Tool: ToolRecommend, Argument: "Heat", K: 0}},
		},
		{
			name:     "empty array means direct answer",
			response: `[]`,
			direct:   true,
		},
		{
			name:     "all tools invalid means direct answer",
			response: `[{"tool":"nope","argument":"x"}]`,
			direct:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(&scriptedChat{responses: []string{tt.response}}, allTools())
			plan, err := p.Plan(context.Background(), "q: "+tt.name, nil)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if plan.Direct != tt.direct {
				t.Fatalf("Direct = %v, want %v", plan.Direct, tt.direct)
			}
			if len(plan.Calls) != len(tt.want) {
				t.Fatalf("got %d calls, want %d: %+v", len(plan.Calls), len(tt.want), plan.Calls)
			}
			for i, want := range tt.want {
				if plan.Calls[i] != want {
					t.Errorf("call %d = %+v, want %+v", i, plan.Calls[i], want)
				}
			}
		})
	}
}

func TestPlannerFallsBackOnModelError(t *testing.T) {
	p := NewPlanner(&scriptedChat{err: errors.New("connection refused")}, allTools())
	plan, err := p.Plan(context.Background(), "tell me about Heat", nil)
	if err == nil {
		t.Fatal("expected a planning error")
	}
	if domain.KindOf(err) != domain.KindPlanning {
		t.Errorf("error kind = %s, want planning_failure", domain.KindOf(err))
	}
	if plan == nil || !plan.Direct {
		t.Errorf("expected a usable direct fallback plan, got %+v", plan)
	}
}

func TestPlannerFallsBackOnGarbage(t *testing.T) {
	p := NewPlanner(&scriptedChat{responses: []string{"I cannot help with that."}}, allTools())
	plan, err := p.Plan(context.Background(), "tell me about Heat", nil)
	if err == nil {
		t.Fatal("expected a planning error")
	}
	if !plan.Direct {
		t.Errorf("expected direct fallback plan")
	}
}

func TestPlannerDegradesDetailsWithoutTMDB(t *testing.T) {
	available := allTools()
	delete(available, ToolMovieDetails)

	p := NewPlanner(&scriptedChat{
		responses: []string{`[{"tool":"movie_details","argument":"Inception"}]`},
	}, available)

	plan, err := p.Plan(context.Background(), "full details on Inception", nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Calls) != 1 || plan.Calls[0].Tool != ToolMovieInfo {
		t.Errorf("expected degradation to movie_info, got %+v", plan.Calls)
	}
}

func TestPlannerCachesHistoryFreeQueries(t *testing.T) {
	chat := &scriptedChat{responses: []string{`[{"tool":"movie_info","argument":"Heat"}]`}}
	p := NewPlanner(chat, allTools())

	for i := 0; i < 3; i++ {
		if _, err := p.Plan(context.Background(), "Tell me about Heat", nil); err != nil {
			t.Fatalf("Plan: %v", err)
		}
	}
	if chat.calls != 1 {
		t.Errorf("expected 1 model call with caching, got %d", chat.calls)
	}

	// With history the cache must not be consulted.
	history := []ChatMessage{{Role: "user", Content: "earlier context"}}
	if _, err := p.Plan(context.Background(), "Tell me about Heat", history); err != nil {
		t.Fatalf("Plan with history: %v", err)
	}
	if chat.calls != 2 {
		t.Errorf("expected a fresh model call when history present, got %d calls", chat.calls)
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `[1,2]`, `[1,2]`, false},
		{"nested", `[[1],[2]]`, `[[1],[2]]`, false},
		{"trailing prose", `[1] and more`, `[1]`, false},
		{"no array", `no json here`, "", true},
		{"unterminated", `[1,2`, "", true},
		{"bracket in string", `[{"a":"x]y"}]`, `[{"a":"x]y"}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONArray(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
