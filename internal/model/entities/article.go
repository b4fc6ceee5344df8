package entities

import (
	"encoding/json"
	"time"
)

// Article is a community post. Body is whatever JSON the client sent.
type Article struct {
	ID        string          `json:"id"`
	Body      json.RawMessage `json:"article"`
	CreatedAt time.Time       `json:"created_at"`
}
