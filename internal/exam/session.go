// Package exam holds the client side of an exam attempt: navigation over a fixed question set,
// answer capture and the submit protocol against the scoring boundary.
//
// A Session is owned by a single interaction loop and is not safe for concurrent use.
package exam

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

type State int

const (
	StateActive State = iota
	StateSubmitting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Submitter delivers a packaged submission to the scoring boundary.
type Submitter interface {
	Submit(ctx context.Context, s domain.Submission) (*domain.ExamResult, error)
}

type Session struct {
	attemptID string
	questions []domain.QuestionView
	answers   []int
	cursor    int
	startedAt time.Time
	state     State
	result    *domain.ExamResult

	now       func() time.Time
	timeLimit time.Duration
}

type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithTimeLimit makes the session expire once d has elapsed since start. Zero disables expiry.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Session) {
		s.timeLimit = d
	}
}

// Start begins a new attempt over questions. The slice is copied and never changes afterwards.
func Start(questions []domain.QuestionView, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, errors.EmptyQuestionSet()
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("exam: generate attempt ID: %w", err)
	}

	s := &Session{
		attemptID: id.String(),
		questions: make([]domain.QuestionView, len(questions)),
		answers:   make([]int, len(questions)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, q := range questions {
		s.questions[i] = domain.QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
		s.answers[i] = domain.Unanswered
	}
	s.startedAt = s.now()

	return s, nil
}

// SelectAnswer records option for the current question, replacing any earlier selection.
func (s *Session) SelectAnswer(option int) error {
	if err := s.checkMutable(); err != nil {
		return err
	}

	n := len(s.questions[s.cursor].Options)
	if option < 0 || option >= n {
		return errors.InvalidOptionIndex(option, n)
	}

	s.answers[s.cursor] = option
	return nil
}

// ClearAnswer marks the current question unanswered again.
func (s *Session) ClearAnswer() error {
	if err := s.checkMutable(); err != nil {
		return err
	}

	s.answers[s.cursor] = domain.Unanswered
	return nil
}

// Advance moves to the next question. It is a no-op on the last one.
func (s *Session) Advance() {
	if s.cursor < len(s.questions)-1 {
		s.cursor++
	}
}

// Retreat moves to the previous question. It is a no-op on the first one.
func (s *Session) Retreat() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// JumpTo moves to any question regardless of which ones are answered.
func (s *Session) JumpTo(index int) error {
	if index < 0 || index >= len(s.questions) {
		return errors.InvalidArgument("question index %d out of range [0, %d)", index, len(s.questions))
	}

	s.cursor = index
	return nil
}

// AttemptID identifies this attempt across submit retries.
func (s *Session) AttemptID() string { return s.attemptID }

func (s *Session) Cursor() int { return s.cursor }

func (s *Session) Len() int { return len(s.questions) }

func (s *Session) State() State { return s.state }

func (s *Session) StartedAt() time.Time { return s.startedAt }

// Result is the boundary's result once the session completed, nil before.
func (s *Session) Result() *domain.ExamResult { return s.result }

func (s *Session) Current() domain.QuestionView { return s.questions[s.cursor] }

func (s *Session) Question(i int) domain.QuestionView { return s.questions[i] }

// Answer returns the selection for question i, or domain.Unanswered.
func (s *Session) Answer(i int) int { return s.answers[i] }

// Answers returns a copy of all selections.
func (s *Session) Answers() []int {
	return append([]int(nil), s.answers...)
}

func (s *Session) AnsweredCount() int {
	n := 0
	for _, a := range s.answers {
		if a != domain.Unanswered {
			n++
		}
	}
	return n
}

// ProgressPercent is the position of the cursor within the exam, not the share answered.
func (s *Session) ProgressPercent() float64 {
	return float64(s.cursor+1) / float64(len(s.questions)) * 100
}

// Elapsed is the time since start, never negative.
func (s *Session) Elapsed() time.Duration {
	d := s.now().Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the configured time limit has been reached.
func (s *Session) Expired() bool {
	return s.timeLimit > 0 && s.Elapsed() >= s.timeLimit
}

// Remaining is the time left before expiry, or -1 when there is no limit.
func (s *Session) Remaining() time.Duration {
	if s.timeLimit <= 0 {
		return -1
	}
	if r := s.timeLimit - s.Elapsed(); r > 0 {
		return r
	}
	return 0
}

func (s *Session) checkMutable() error {
	if s.state != StateActive {
		return errors.SessionNotActive(s.state.String())
	}
	if s.Expired() {
		return errors.SessionExpired()
	}
	return nil
}

// Submit packages the answers and hands them to sub. With unanswered questions and confirm unset it
// returns a HasUnanswered error and changes nothing. On failure the session returns to active with all
// answers intact, so calling Submit again retries with a freshly measured time.
func (s *Session) Submit(ctx context.Context, userID string, confirm bool, sub Submitter) (*domain.ExamResult, error) {
	if s.state != StateActive {
		return nil, errors.SessionNotActive(s.state.String())
	}

	p, err := Package(s, userID, confirm)
	if err != nil {
		return nil, err
	}

	s.state = StateSubmitting
	res, err := sub.Submit(ctx, p)
	if err != nil {
		s.state = StateActive

		var e *errors.Error
		if stderrors.As(err, &e) {
			return nil, err
		}
		return nil, errors.SubmissionTransportFailure(err)
	}

	s.state = StateCompleted
	s.result = res
	return res, nil
}
