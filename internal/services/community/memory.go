package community

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
)

// MemoryStore keeps articles for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	articles []entities.Article
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Add(_ context.Context, body json.RawMessage) (entities.Article, error) {
	a, err := newArticle(body, s.now())
	if err != nil {
		return entities.Article{}, err
	}
	s.mu.Lock()
	s.articles = append(s.articles, a)
	s.mu.Unlock()
	return a, nil
}

// List returns a copy in append order.
func (s *MemoryStore) List(_ context.Context) ([]entities.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Article, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}
