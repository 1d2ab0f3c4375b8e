package service

import (
	"path/filepath"
	"testing"

	"github.com/davec/filmscout/internal/domain"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSession()
	s.Append(domain.Turn{Role: domain.RoleUser, Text: "Tell me about Inception"})
	s.Append(domain.Turn{
		Role: domain.RoleAssistant,
		Text: "Inception is a 2010 film by Christopher Nolan.",
		Media: domain.MediaRefs{
			PosterURL:  "https://example.com/poster.jpg",
			TrailerURL: "https://youtube.com/watch?v=abc",
		},
	})

	path := filepath.Join(t.TempDir(), "session.json")
	if err := s.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	restored := NewSession()
	if err := restored.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	got := restored.History()
	want := s.History()
	if len(got) != len(want) {
		t.Fatalf("restored %d turns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSessionLoadReplacesExisting(t *testing.T) {
	saved := NewSession()
	saved.Append(domain.Turn{Role: domain.RoleUser, Text: "saved turn"})
	path := filepath.Join(t.TempDir(), "session.json")
	if err := saved.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	s := NewSession()
	s.Append(domain.Turn{Role: domain.RoleUser, Text: "will be replaced"})
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.Len() != 1 || s.History()[0].Text != "saved turn" {
		t.Errorf("load should replace the transcript: %+v", s.History())
	}
}

func TestSessionLoadMissingFile(t *testing.T) {
	s := NewSession()
	if err := s.LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSessionClear(t *testing.T) {
	s := NewSession()
	s.Append(domain.Turn{Role: domain.RoleUser, Text: "hello"})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Clear left %d turns", s.Len())
	}
}

func TestSessionChatHistoryBounded(t *testing.T) {
	s := NewSession()
	for i := 0; i < 6; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		s.Append(domain.Turn{Role: role, Text: string(rune('a' + i))})
	}

	msgs := s.ChatHistory(4)
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Content != "c" || msgs[3].Content != "f" {
		t.Errorf("expected the most recent turns, got %+v", msgs)
	}

	if got := s.ChatHistory(0); len(got) != 6 {
		t.Errorf("limit 0 should return everything, got %d", len(got))
	}
}
