package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/interiorchat/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionFetcher is the part of the backend the quick-questions provider needs.
type QuestionFetcher interface {
	QuickQuestions(ctx context.Context, pageType string) ([]string, error)
}

type QuickQuestionsService struct {
	backend QuestionFetcher
	timeout time.Duration
	cache   *QuestionsCache
	group   singleflight.Group
}

func NewQuickQuestionsService(backend QuestionFetcher, timeout, cacheTTL time.Duration) *QuickQuestionsService {
	return &QuickQuestionsService{
		backend: backend,
		timeout: timeout,
		cache:   NewQuestionsCache(cacheTTL),
	}
}

// Get returns the suggested prompts for category. It never fails: any upstream problem yields
// the fixed fallback set, which is not cached.
func (s *QuickQuestionsService) Get(ctx context.Context, category domain.Category) []string {
	if cached, ok := s.cache.Get(category); ok {
		return cached
	}

	v, err, _ := s.group.Do(string(category), func() (any, error) {
		// Shared by every concurrent caller, so one caller going away must not cancel it.
		fetchCtx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, s.timeout)
			defer cancel()
		}
		questions, err := s.backend.QuickQuestions(fetchCtx, category.PageType())
		if err != nil {
			return nil, err
		}
		if questions == nil {
			questions = []string{}
		}
		s.cache.Set(category, questions)
		return questions, nil
	})
	if err != nil {
		slog.Warn("quick questions unavailable, serving fallback",
			"category", category,
			"error", err,
		)
		return domain.Fallback()
	}
	return cloneStrings(v.([]string))
}
