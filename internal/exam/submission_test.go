package exam_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/exam"
)

func TestPrepare(t *testing.T) {
	tests := map[string]struct {
		answers []int
		want    []int
	}{
		"all answered should not flag anything": {
			answers: []int{0, 1, 2},
		},
		"one unanswered should be flagged": {
			answers: []int{0, domain.Unanswered, 2},
			want:    []int{1},
		},
		"nothing answered should flag every question": {
			answers: []int{domain.Unanswered, domain.Unanswered},
			want:    []int{0, 1},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := startWithAnswers(t, tt.answers)
			c := exam.Prepare(s)

			assert.Equal(t, tt.want, c.Unanswered)
			assert.Equal(t, len(tt.want) > 0, c.HasUnanswered())

			_, err := exam.Package(s, "u1", false)
			if c.HasUnanswered() {
				require.ErrorIs(t, err, errors.ErrHasUnanswered)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPackage_TimeTaken(t *testing.T) {
	tests := map[string]struct {
		elapsed time.Duration
		want    int64
	}{
		"same instant as start should be zero": {
			elapsed: 0,
			want:    0,
		},
		"fractional seconds should be floored": {
			elapsed: 1900 * time.Millisecond,
			want:    1,
		},
		"clock moving backwards should clamp to zero": {
			elapsed: -5 * time.Second,
			want:    0,
		},
		"minutes should convert to seconds": {
			elapsed: 3*time.Minute + 2*time.Second,
			want:    182,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newClock()
			s, err := exam.Start(makeQuestions(1), exam.WithClock(c.Now))
			require.NoError(t, err)
			require.NoError(t, s.SelectAnswer(0))

			c.Add(tt.elapsed)
			p, err := exam.Package(s, "u1", false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.TimeTakenSeconds)
		})
	}
}

func TestPackage_DoesNotMutateSession(t *testing.T) {
	s := startWithAnswers(t, []int{1, domain.Unanswered})

	p, err := exam.Package(s, "u1", true)
	require.NoError(t, err)

	p.Answers[0] = 3
	assert.Equal(t, 1, s.Answer(0))
	assert.Equal(t, exam.StateActive, s.State())
}

func TestPackage_RequiresUser(t *testing.T) {
	s := startWithAnswers(t, []int{1})

	_, err := exam.Package(s, "", false)
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPackage_PinsAttemptAndQuestions(t *testing.T) {
	s := startWithAnswers(t, []int{1, 0, 2})

	p, err := exam.Package(s, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, p.QuestionIDs)
	assert.NotEmpty(t, p.AttemptID)
	assert.Equal(t, s.AttemptID(), p.AttemptID)

	other := startWithAnswers(t, []int{1, 0, 2})
	assert.NotEqual(t, s.AttemptID(), other.AttemptID(), "each session should be a new attempt")
}
