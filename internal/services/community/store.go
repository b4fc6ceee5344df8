// Package community keeps the articles farmers post, in submission order.
package community

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/google/uuid"
)

var ErrInvalidJSON = errors.New("article is not valid JSON")

// Store appends and lists articles. Implementations are safe for concurrent use.
type Store interface {
	Add(ctx context.Context, body json.RawMessage) (entities.Article, error)
	List(ctx context.Context) ([]entities.Article, error)
}

// newArticle validates body and stamps an ID and creation time.
func newArticle(body []byte, now time.Time) (entities.Article, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return entities.Article{}, ErrInvalidJSON
	}
	return entities.Article{
		ID:        uuid.NewString(),
		Body:      append(json.RawMessage(nil), body...),
		CreatedAt: now.UTC(),
	}, nil
}
