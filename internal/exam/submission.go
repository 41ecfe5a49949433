package exam

import (
	"time"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

// Check is the dry-run result of Prepare.
type Check struct {
	// Unanswered holds question indexes without a selection, in order.
	Unanswered []int
}

func (c Check) HasUnanswered() bool {
	return len(c.Unanswered) > 0
}

// Prepare scans the session for unanswered questions without changing it.
func Prepare(s *Session) Check {
	var c Check
	for i, a := range s.answers {
		if a == domain.Unanswered {
			c.Unanswered = append(c.Unanswered, i)
		}
	}
	return c
}

// Package builds the submission payload. Unanswered questions are sent as domain.Unanswered, which
// the boundary never counts as correct. Without confirm a session with unanswered questions is
// refused with a HasUnanswered error.
func Package(s *Session, userID string, confirm bool) (domain.Submission, error) {
	if userID == "" {
		return domain.Submission{}, errors.Unauthorized("no authenticated user")
	}

	if c := Prepare(s); c.HasUnanswered() && !confirm {
		return domain.Submission{}, errors.HasUnanswered(len(c.Unanswered))
	}

	ids := make([]string, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}

	return domain.Submission{
		UserID:           userID,
		AttemptID:        s.attemptID,
		QuestionIDs:      ids,
		Answers:          s.Answers(),
		TimeTakenSeconds: int64(s.Elapsed() / time.Second),
	}, nil
}
