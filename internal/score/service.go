package score

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/event"
	"github.com/victornm/phishlms/internal/telemetry"
)

// AnswerKey provides the trusted question set, including correct options.
type AnswerKey interface {
	GetQuestionSet(ctx context.Context) ([]domain.Question, error)
}

// Profiles persists results and applies them to the user's profile. ApplyExamResult reports an
// AlreadyExists error for an attempt that was recorded before, GetExamResult a NotFound error for an
// attempt that was not.
type Profiles interface {
	ApplyExamResult(ctx context.Context, res domain.ExamResult) error
	GetExamResult(ctx context.Context, userID, attemptID string) (*domain.ExamResult, error)
	ListExamResults(ctx context.Context, userID string) ([]domain.ExamResult, error)
}

type Config struct {
	EventBus   *event.Bus
	AnswerKey  AnswerKey
	Profiles   Profiles
	Classifier *Classifier
	Now        func() time.Time
}

// Service is the trusted scoring boundary. Nothing a client computes is taken into account.
type Service struct {
	eb       *event.Bus
	key      AnswerKey
	profiles Profiles
	cls      *Classifier
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:       c.EventBus,
		key:      c.AnswerKey,
		profiles: c.Profiles,
		cls:      c.Classifier,
		now:      c.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type EvaluateRequest struct {
	// UserID is the authenticated caller.
	UserID     string
	Submission domain.Submission
}

// Evaluate scores a submission against the trusted answer key, classifies it, records the result and
// updates the caller's profile in one step. Submitting an attempt again returns the result recorded
// the first time and changes nothing.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*domain.ExamResult, error) {
	res, recorded, err := s.evaluate(ctx, req)
	if err != nil {
		telemetry.ObserveSubmissionRejected(errors.Convert(err).Reason)
		return nil, err
	}

	if recorded {
		telemetry.ObserveExamResult(*res)
	}
	return res, nil
}

func (s *Service) evaluate(ctx context.Context, req EvaluateRequest) (*domain.ExamResult, bool, error) {
	sub := req.Submission

	if req.UserID == "" {
		return nil, false, errors.Unauthorized("no authenticated user")
	}
	if sub.UserID != req.UserID {
		return nil, false, errors.Forbidden("submission for user %q by user %q", sub.UserID, req.UserID)
	}
	if sub.AttemptID == "" {
		return nil, false, errors.MalformedSubmission("missing attempt id")
	}

	if prev, err := s.recorded(ctx, sub); err != nil || prev != nil {
		return prev, false, err
	}

	key, err := s.key.GetQuestionSet(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("score: load answer key: %w", err)
	}

	if err := validate(sub, key); err != nil {
		return nil, false, err
	}

	t, err := Compute(sub.Answers, key)
	if err != nil {
		return nil, false, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("score: generate result ID: %w", err)
	}

	res := domain.ExamResult{
		ResultID:         id.String(),
		UserID:           req.UserID,
		AttemptID:        sub.AttemptID,
		Score:            t.Score,
		TotalQuestions:   t.TotalQuestions,
		CorrectAnswers:   t.CorrectAnswers,
		Classification:   s.cls.Classify(t.Score),
		TimeTakenSeconds: sub.TimeTakenSeconds,
		SubmittedAt:      s.now().UTC(),
	}

	err = s.profiles.ApplyExamResult(ctx, res)
	if stderrors.Is(err, errors.New(errors.CodeAlreadyExists)) {
		// a concurrent retry of the same attempt won
		prev, err := s.recorded(ctx, sub)
		if err == nil && prev == nil {
			err = fmt.Errorf("score: attempt %s reported recorded but not found", sub.AttemptID)
		}
		return prev, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("score: apply result: %w", err)
	}

	slog.InfoContext(ctx, "score: exam evaluated",
		"user", res.UserID,
		"attempt", res.AttemptID,
		"score", res.Score,
		"classification", res.Classification,
	)

	s.eb.Publish(ctx, domain.EventResultRecorded{
		Result: res,
	})

	return &res, true, nil
}

// recorded returns the result already stored for the submission's attempt, or nil.
func (s *Service) recorded(ctx context.Context, sub domain.Submission) (*domain.ExamResult, error) {
	res, err := s.profiles.GetExamResult(ctx, sub.UserID, sub.AttemptID)
	if stderrors.Is(err, errors.New(errors.CodeNotFound)) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("score: look up attempt: %w", err)
	}

	slog.InfoContext(ctx, "score: attempt already recorded", "user", sub.UserID, "attempt", sub.AttemptID)
	return res, nil
}

func validate(sub domain.Submission, key []domain.Question) error {
	if len(key) == 0 {
		return errors.EmptyQuestionSet()
	}

	if len(sub.Answers) != len(key) {
		return errors.MalformedSubmission("got %d answers, want %d", len(sub.Answers), len(key))
	}

	if len(sub.QuestionIDs) != len(key) {
		return errors.MalformedSubmission("got %d question ids, want %d", len(sub.QuestionIDs), len(key))
	}
	for i, q := range key {
		if sub.QuestionIDs[i] != q.ID {
			return errors.MalformedSubmission("question %d is %q, not %q: the question set changed, start a new exam",
				i, q.ID, sub.QuestionIDs[i])
		}
	}

	for i, a := range sub.Answers {
		if a != domain.Unanswered && (a < 0 || a >= len(key[i].Options)) {
			return errors.MalformedSubmission("answer %d: option %d out of range", i, a)
		}
	}

	if sub.TimeTakenSeconds < 0 {
		return errors.MalformedSubmission("negative time taken: %d", sub.TimeTakenSeconds)
	}

	return nil
}

type ListResultsRequest struct {
	UserID string
}

// ListResults returns the caller's result history, newest first.
func (s *Service) ListResults(ctx context.Context, req ListResultsRequest) ([]domain.ExamResult, error) {
	if req.UserID == "" {
		return nil, errors.Unauthorized("no authenticated user")
	}

	return s.profiles.ListExamResults(ctx, req.UserID)
}
