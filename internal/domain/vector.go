package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Float32Array stores an embedding vector as JSON text in the database.
type Float32Array []float32

// Value implements the driver.Valuer interface.
func (a Float32Array) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (a *Float32Array) Scan(value interface{}) error {
	if value == nil {
		*a = Float32Array{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Float32Array")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// MovieVector is the stored embedding for one movie's search document,
// keyed by the same normalized title+year key as the movie record.
// UpsertedAt orders entries by ingestion recency; similarity ties are
// broken by the most recent upsert, and the retention cap evicts the
// oldest entries first.
type MovieVector struct {
	Key        string       `gorm:"type:text;primaryKey" json:"key"`
	Vector     Float32Array `gorm:"type:text" json:"vector"`
	UpsertedAt time.Time    `gorm:"index:idx_movie_vectors_upserted" json:"upserted_at"`
}

// TableName returns the database table name for MovieVector.
func (MovieVector) TableName() string {
	return "movie_vectors"
}
