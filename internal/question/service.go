package question

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/telemetry"
)

const defaultTTL = 5 * time.Minute

// Source is the authoritative store of the exam question set.
type Source interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	ReplaceQuestions(ctx context.Context, qs []domain.Question) error
}

type Config struct {
	Source Source
	// Redis caches the question set. Nil disables caching.
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

// Service provides the ordered question set. Questions are immutable once issued. Replacing the set
// does not rescore open sessions: their submissions carry the old question ids and are refused.
type Service struct {
	src    Source
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewService(c Config) *Service {
	s := &Service{
		src:    c.Source,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}

	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	return s
}

// GetQuestionSet returns the full question set including correct options. Only the scoring boundary
// may see it.
func (s *Service) GetQuestionSet(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := s.getCached(ctx); ok {
		return qs, nil
	}

	qs, err := s.src.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("question: load: %w", err)
	}

	if len(qs) == 0 {
		return nil, errors.EmptyQuestionSet()
	}

	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, errors.Internal(err)
		}
	}

	s.setCached(ctx, qs)
	return qs, nil
}

// GetPublicQuestionSet returns the question set without correct options or explanations.
func (s *Service) GetPublicQuestionSet(ctx context.Context) ([]domain.QuestionView, error) {
	qs, err := s.GetQuestionSet(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.QuestionView, 0, len(qs))
	for _, q := range qs {
		views = append(views, q.Public())
	}

	return views, nil
}

// PutQuestionSet replaces the question set and drops the cached copy.
func (s *Service) PutQuestionSet(ctx context.Context, qs []domain.Question) error {
	if len(qs) == 0 {
		return errors.EmptyQuestionSet()
	}

	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return errors.InvalidArgument("%v", err)
		}
		if q.ID == "" || seen[q.ID] {
			return errors.InvalidArgument("question ID %q is empty or duplicated", q.ID)
		}
		seen[q.ID] = true
	}

	if err := s.src.ReplaceQuestions(ctx, qs); err != nil {
		return fmt.Errorf("question: replace: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, s.cacheKey()).Err(); err != nil {
			slog.ErrorContext(ctx, "question: invalidate cache failed", "error", err)
		}
	}

	return nil
}

func (s *Service) getCached(ctx context.Context) ([]domain.Question, bool) {
	if s.redis == nil {
		return nil, false
	}

	b, err := s.redis.Get(ctx, s.cacheKey()).Bytes()
	if stderrors.Is(err, redis.Nil) {
		telemetry.ObserveQuestionCache("miss")
		return nil, false
	}
	if err != nil {
		telemetry.ObserveQuestionCache("error")
		slog.ErrorContext(ctx, "question: read cache failed", "error", err)
		return nil, false
	}

	var qs []domain.Question
	if err := json.Unmarshal(b, &qs); err != nil || len(qs) == 0 {
		telemetry.ObserveQuestionCache("error")
		slog.ErrorContext(ctx, "question: corrupt cache entry", "error", err)
		return nil, false
	}

	telemetry.ObserveQuestionCache("hit")
	return qs, true
}

func (s *Service) setCached(ctx context.Context, qs []domain.Question) {
	if s.redis == nil {
		return
	}

	b, err := json.Marshal(qs)
	if err != nil {
		slog.ErrorContext(ctx, "question: marshal cache entry failed", "error", err)
		return
	}

	if err := s.redis.Set(ctx, s.cacheKey(), b, s.ttl).Err(); err != nil {
		slog.ErrorContext(ctx, "question: write cache failed", "error", err)
	}
}

func (s *Service) cacheKey() string {
	return fmt.Sprintf("%s:questions", s.prefix)
}
