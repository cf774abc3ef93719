package service

import (
	"sync"
	"time"

	"github.com/set-night/interiorchat/internal/domain"
)

type cachedQuestions struct {
	questions []string
	cachedAt  time.Time
}

// QuestionsCache keeps successful quick-question results per category.
// A non-positive ttl disables caching.
type QuestionsCache struct {
	mu      sync.RWMutex
	entries map[domain.Category]cachedQuestions
	ttl     time.Duration
}

func NewQuestionsCache(ttl time.Duration) *QuestionsCache {
	return &QuestionsCache{
		entries: make(map[domain.Category]cachedQuestions),
		ttl:     ttl,
	}
}

func (c *QuestionsCache) Get(category domain.Category) ([]string, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[category]
	if !ok || time.Since(e.cachedAt) > c.ttl {
		return nil, false
	}
	return cloneStrings(e.questions), true
}

func (c *QuestionsCache) Set(category domain.Category, questions []string) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[category] = cachedQuestions{
		questions: cloneStrings(questions),
		cachedAt:  time.Now(),
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
