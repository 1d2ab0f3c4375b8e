package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MediaRefs carries optional media links attached to a turn.
type MediaRefs struct {
	PosterURL  string `json:"poster_url,omitempty"`
	TrailerURL string `json:"trailer_url,omitempty"`
}

// Empty reports whether no media link is set.
func (m MediaRefs) Empty() bool {
	return m.PosterURL == "" && m.TrailerURL == ""
}

// Turn is one message in a session transcript. The ordered sequence of
// turns forms the conversation history passed back to the agent.
type Turn struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Media MediaRefs `json:"media,omitempty"`
}

// Answer is the agent's response to a single user turn. Errors lists
// tool failures that may have affected answer completeness; it is never
// silently dropped.
type Answer struct {
	Text   string    `json:"text"`
	Media  MediaRefs `json:"media"`
	Errors []string  `json:"errors,omitempty"`
}
