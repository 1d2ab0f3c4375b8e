package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// RawPayload stores the original provider response as opaque JSON.
// It is a debugging escape hatch and not part of the normalized contract.
type RawPayload json.RawMessage

// Value implements the driver.Valuer interface.
func (p RawPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

// Scan implements the sql.Scanner interface.
func (p *RawPayload) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*p = append(RawPayload{}, v...)
	case string:
		*p = RawPayload(v)
	default:
		return errors.New("failed to scan RawPayload")
	}
	return nil
}

// MarshalJSON renders the payload as-is.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON stores the payload as-is.
func (p *RawPayload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// MaxDisplayCast is the number of leading cast members surfaced in
// search documents and API responses.
const MaxDisplayCast = 5

// Movie is the normalized representation of one title. Every provider
// response is coerced into this shape before it is stored or returned
// to the agent, regardless of the origin provider's field names.
type Movie struct {
	Key       string      `gorm:"type:text;primaryKey" json:"key"`
	Title     string      `gorm:"type:text;not null" json:"title"`
	Year      string      `gorm:"type:text" json:"year"`
	Director  string      `gorm:"type:text" json:"director"`
	Cast      StringArray `gorm:"type:text" json:"cast"`
	Genre     string      `gorm:"type:text" json:"genre"`
	Plot      string      `gorm:"type:text" json:"plot"`
	PosterURL string      `gorm:"type:text" json:"poster_url,omitempty"`
	TrailerURL string     `gorm:"type:text" json:"trailer_url,omitempty"`
	Rating    string      `gorm:"type:text" json:"rating,omitempty"`
	Runtime   string      `gorm:"type:text" json:"runtime,omitempty"`
	Awards    string      `gorm:"type:text" json:"awards,omitempty"`
	Source    string      `gorm:"type:text" json:"source"`
	Raw       RawPayload  `gorm:"type:text" json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Movie.
func (Movie) TableName() string {
	return "movies"
}

// NormalizeKey builds the canonical title+year key used to deduplicate
// records. The same title re-ingested with the same year overwrites.
func NormalizeKey(title, year string) string {
	t := strings.ToLower(strings.Join(strings.Fields(title), " "))
	y := strings.TrimSpace(year)
	return t + "|" + y
}

// NormalizeTitle returns the canonical lowercase form of a title, used
// for exact-match lookups that should ignore case and spacing.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// EnsureKey populates the Key field from Title and Year if unset.
func (m *Movie) EnsureKey() {
	if m.Key == "" {
		m.Key = NormalizeKey(m.Title, m.Year)
	}
}

// SearchDocument builds the text blob indexed into the vector store:
// title, year, director, leading cast, genre and plot concatenated in a
// fixed order so the same record always embeds to the same document.
func (m *Movie) SearchDocument() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s). ", m.Title, m.Year)
	if m.Director != "" {
		fmt.Fprintf(&b, "Directed by %s. ", m.Director)
	}
	if len(m.Cast) > 0 {
		cast := m.Cast
		if len(cast) > MaxDisplayCast {
			cast = cast[:MaxDisplayCast]
		}
		fmt.Fprintf(&b, "Starring %s. ", strings.Join(cast, ", "))
	}
	if m.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s. ", m.Genre)
	}
	b.WriteString(m.Plot)
	return strings.TrimSpace(b.String())
}

// MovieSearchResult is a movie paired with its similarity score.
type MovieSearchResult struct {
	Movie
	Score float32 `json:"score"`
}

// Trailer is a normalized video search result.
type Trailer struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	VideoID     string `json:"video_id"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Channel     string `json:"channel,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}
