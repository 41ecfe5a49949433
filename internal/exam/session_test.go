package exam_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/exam"
)

func TestStart(t *testing.T) {
	t.Run("empty question set should fail", func(t *testing.T) {
		_, err := exam.Start(nil)
		require.ErrorIs(t, err, errors.ErrEmptyQuestionSet)
	})

	for _, n := range []int{1, 3, 10} {
		s, err := exam.Start(makeQuestions(n))
		require.NoError(t, err)

		assert.Equal(t, n, s.Len())
		assert.Equal(t, 0, s.Cursor())
		assert.Equal(t, exam.StateActive, s.State())
		assert.Equal(t, 0, s.AnsweredCount())
		require.Len(t, s.Answers(), n)
		for _, a := range s.Answers() {
			assert.Equal(t, domain.Unanswered, a)
		}
	}
}

func TestStart_CopiesQuestions(t *testing.T) {
	qs := makeQuestions(2)
	s, err := exam.Start(qs)
	require.NoError(t, err)

	qs[0].Options[0] = "changed"
	qs[1].Prompt = "changed"

	assert.Equal(t, "option 0", s.Question(0).Options[0])
	assert.Equal(t, "prompt", s.Question(1).Prompt)
}

func TestSession_Navigation(t *testing.T) {
	type step func(t *testing.T, s *exam.Session)

	advance := func(t *testing.T, s *exam.Session) { s.Advance() }
	retreat := func(t *testing.T, s *exam.Session) { s.Retreat() }
	jump := func(i int) step {
		return func(t *testing.T, s *exam.Session) { require.NoError(t, s.JumpTo(i)) }
	}

	tests := map[string]struct {
		steps      []step
		wantCursor int
	}{
		"retreat at first question should be a no-op": {
			steps:      []step{retreat, retreat},
			wantCursor: 0,
		},
		"advance at last question should be a no-op": {
			steps:      []step{advance, advance, advance, advance},
			wantCursor: 2,
		},
		"advance then retreat should return to start": {
			steps:      []step{advance, retreat},
			wantCursor: 0,
		},
		"jump should move anywhere regardless of answers": {
			steps:      []step{jump(2), retreat},
			wantCursor: 1,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := exam.Start(makeQuestions(3))
			require.NoError(t, err)

			for _, st := range tt.steps {
				st(t, s)
			}

			assert.Equal(t, tt.wantCursor, s.Cursor())
		})
	}
}

func TestSession_JumpToOutOfRange(t *testing.T) {
	s, err := exam.Start(makeQuestions(3))
	require.NoError(t, err)

	require.Error(t, s.JumpTo(3))
	require.Error(t, s.JumpTo(-1))
	assert.Equal(t, 0, s.Cursor())
}

func TestSession_SelectAnswer(t *testing.T) {
	s, err := exam.Start(makeQuestions(3))
	require.NoError(t, err)

	require.NoError(t, s.SelectAnswer(2))
	require.NoError(t, s.SelectAnswer(2))
	assert.Equal(t, []int{2, domain.Unanswered, domain.Unanswered}, s.Answers())

	require.ErrorIs(t, s.SelectAnswer(4), errors.ErrInvalidOptionIndex)
	require.ErrorIs(t, s.SelectAnswer(-1), errors.ErrInvalidOptionIndex)
	assert.Equal(t, 2, s.Answer(0), "rejected selection should not change state")

	require.NoError(t, s.JumpTo(2))
	require.NoError(t, s.SelectAnswer(1))
	require.NoError(t, s.JumpTo(0))
	assert.Equal(t, 2, s.Answer(0), "navigation should never clear answers")
	assert.Equal(t, 1, s.Answer(2))
	assert.Equal(t, 2, s.AnsweredCount())

	require.NoError(t, s.ClearAnswer())
	assert.Equal(t, domain.Unanswered, s.Answer(0))
}

func TestSession_ProgressPercent(t *testing.T) {
	s, err := exam.Start(makeQuestions(4))
	require.NoError(t, err)

	assert.InDelta(t, 25.0, s.ProgressPercent(), 1e-9)
	s.Advance()
	s.Advance()
	s.Advance()
	assert.InDelta(t, 100.0, s.ProgressPercent(), 1e-9)
}

func TestSession_TimeLimit(t *testing.T) {
	clock := newClock()
	s, err := exam.Start(makeQuestions(2), exam.WithClock(clock.Now), exam.WithTimeLimit(time.Minute))
	require.NoError(t, err)

	require.NoError(t, s.SelectAnswer(0))
	assert.False(t, s.Expired())
	assert.Equal(t, time.Minute, s.Remaining())

	clock.Add(time.Minute)
	assert.True(t, s.Expired())
	assert.Equal(t, time.Duration(0), s.Remaining())
	require.ErrorIs(t, s.SelectAnswer(1), errors.ErrSessionExpired)

	sub := &fakeSubmitter{}
	_, err = s.Submit(context.Background(), "u1", true, sub)
	require.NoError(t, err, "expired sessions can still be submitted")
	assert.Equal(t, int64(60), sub.received[0].TimeTakenSeconds)
}

func TestSession_Submit(t *testing.T) {
	type (
		inputs struct {
			answers []int
			confirm bool
			sub     *fakeSubmitter
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error)
	}{
		"complete session should submit and complete": {
			arrange: func() inputs {
				return inputs{answers: []int{0, 1, 2}, sub: &fakeSubmitter{}}
			},
			assert: func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error) {
				require.NoError(t, err)
				require.NotNil(t, res)
				assert.Equal(t, exam.StateCompleted, s.State())
				assert.Same(t, res, s.Result())
				require.Len(t, sub.received, 1)
				assert.Equal(t, []int{0, 1, 2}, sub.received[0].Answers)
				assert.Equal(t, "u1", sub.received[0].UserID)
			},
		},
		"unanswered without confirmation should be refused without side effects": {
			arrange: func() inputs {
				return inputs{answers: []int{0, domain.Unanswered, 2}, sub: &fakeSubmitter{}}
			},
			assert: func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error) {
				require.ErrorIs(t, err, errors.ErrHasUnanswered)
				assert.Nil(t, res)
				assert.Empty(t, sub.received)
				assert.Equal(t, exam.StateActive, s.State())
			},
		},
		"unanswered with confirmation should send the sentinel": {
			arrange: func() inputs {
				return inputs{answers: []int{0, domain.Unanswered, 2}, confirm: true, sub: &fakeSubmitter{}}
			},
			assert: func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error) {
				require.NoError(t, err)
				require.Len(t, sub.received, 1)
				assert.Equal(t, []int{0, domain.Unanswered, 2}, sub.received[0].Answers)
			},
		},
		"transport failure should revert to active and keep answers": {
			arrange: func() inputs {
				return inputs{answers: []int{0, 1, 2}, sub: &fakeSubmitter{err: stderrors.New("connection reset")}}
			},
			assert: func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error) {
				require.ErrorIs(t, err, errors.ErrSubmissionTransportFailure)
				assert.Equal(t, exam.StateActive, s.State())
				assert.Equal(t, []int{0, 1, 2}, s.Answers())

				sub.err = nil
				res, err = s.Submit(context.Background(), "u1", false, sub)
				require.NoError(t, err, "retry should succeed")
				require.NotNil(t, res)
				require.Len(t, sub.received, 2)
				assert.Equal(t, sub.received[0].Answers, sub.received[1].Answers)
				assert.Equal(t, s.AttemptID(), sub.received[1].AttemptID, "retry should reuse the attempt")
				assert.Equal(t, sub.received[0].AttemptID, sub.received[1].AttemptID)
			},
		},
		"boundary rejection should be returned unchanged": {
			arrange: func() inputs {
				return inputs{answers: []int{0, 1, 2}, sub: &fakeSubmitter{err: errors.MalformedSubmission("bad")}}
			},
			assert: func(t *testing.T, s *exam.Session, sub *fakeSubmitter, res *domain.ExamResult, err error) {
				require.ErrorIs(t, err, errors.ErrMalformedSubmission)
				assert.NotErrorIs(t, err, errors.ErrSubmissionTransportFailure)
				assert.Equal(t, exam.StateActive, s.State())
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			s := startWithAnswers(t, in.answers)

			res, err := s.Submit(context.Background(), "u1", in.confirm, in.sub)
			tt.assert(t, s, in.sub, res, err)
		})
	}
}

func TestSession_CompletedIsFinal(t *testing.T) {
	s := startWithAnswers(t, []int{0})
	_, err := s.Submit(context.Background(), "u1", false, &fakeSubmitter{})
	require.NoError(t, err)

	require.ErrorIs(t, s.SelectAnswer(1), errors.ErrSessionNotActive)
	_, err = s.Submit(context.Background(), "u1", false, &fakeSubmitter{})
	require.ErrorIs(t, err, errors.ErrSessionNotActive)
	assert.Equal(t, exam.StateCompleted, s.State())
}

func TestSession_SubmitStateDuringCall(t *testing.T) {
	s := startWithAnswers(t, []int{0})

	var during exam.State
	sub := submitterFunc(func(ctx context.Context, _ domain.Submission) (*domain.ExamResult, error) {
		during = s.State()
		require.ErrorIs(t, s.SelectAnswer(1), errors.ErrSessionNotActive)
		return &domain.ExamResult{}, nil
	})

	_, err := s.Submit(context.Background(), "u1", false, sub)
	require.NoError(t, err)
	assert.Equal(t, exam.StateSubmitting, during)
}

func makeQuestions(n int) []domain.QuestionView {
	qs := make([]domain.QuestionView, n)
	for i := range qs {
		qs[i] = domain.QuestionView{
			ID:      string(rune('a' + i)),
			Prompt:  "prompt",
			Options: []string{"option 0", "option 1", "option 2", "option 3"},
		}
	}
	return qs
}

func startWithAnswers(t *testing.T, answers []int) *exam.Session {
	t.Helper()

	s, err := exam.Start(makeQuestions(len(answers)))
	require.NoError(t, err)

	for i, a := range answers {
		require.NoError(t, s.JumpTo(i))
		if a != domain.Unanswered {
			require.NoError(t, s.SelectAnswer(a))
		}
	}
	return s
}

type fakeSubmitter struct {
	err      error
	received []domain.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, s domain.Submission) (*domain.ExamResult, error) {
	f.received = append(f.received, s)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExamResult{UserID: s.UserID, TotalQuestions: len(s.Answers)}, nil
}

type submitterFunc func(ctx context.Context, s domain.Submission) (*domain.ExamResult, error)

func (f submitterFunc) Submit(ctx context.Context, s domain.Submission) (*domain.ExamResult, error) {
	return f(ctx, s)
}

type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Add(d time.Duration) { c.t = c.t.Add(d) }
