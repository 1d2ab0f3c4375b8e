package service

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/davec/filmscout/internal/domain"
)

// Session is the explicit conversation state threaded through the
// agent. Nothing else holds history; dropping the session drops the
// conversation.
type Session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Append adds a turn to the transcript.
func (s *Session) Append(turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// History returns a copy of the full transcript in order.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns recorded.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Clear discards the transcript.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// ChatHistory converts the most recent turns into chat messages for
// the model, bounded by limit turns.
func (s *Session) ChatHistory(limit int) []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	messages := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, ChatMessage{Role: string(t.Role), Content: t.Text})
	}
	return messages
}

// sessionFile is the on-disk shape. Media links survive the round
// trip along with the text.
type sessionFile struct {
	Turns []domain.Turn `json:"turns"`
}

// SaveFile writes the transcript as JSON to path.
func (s *Session) SaveFile(path string) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(sessionFile{Turns: s.turns}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadFile replaces the transcript with the one stored at path.
func (s *Session) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}
	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to decode session file: %w", err)
	}
	s.mu.Lock()
	s.turns = file.Turns
	s.mu.Unlock()
	return nil
}
