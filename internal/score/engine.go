package score

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

var hundred = decimal.NewFromInt(100)

// Tally is the raw outcome of comparing a submission with the answer key.
type Tally struct {
	Score          int
	TotalQuestions int
	CorrectAnswers int
}

// Compute counts positional matches between answers and key and converts them to a percentage
// rounded half-up. Lengths must match.
func Compute(answers []int, key []domain.Question) (Tally, error) {
	if len(key) == 0 {
		return Tally{}, errors.EmptyQuestionSet()
	}
	if len(answers) != len(key) {
		return Tally{}, errors.MalformedSubmission("got %d answers, want %d", len(answers), len(key))
	}

	correct := 0
	for i, q := range key {
		if answers[i] == q.CorrectOptionIndex {
			correct++
		}
	}

	return Tally{
		Score:          Percent(correct, len(key)),
		TotalQuestions: len(key),
		CorrectAnswers: correct,
	}, nil
}

// Percent returns round(correct / total * 100) with halves rounded up.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}

	num := decimal.NewFromInt(int64(correct)).Mul(hundred)
	den := decimal.NewFromInt(int64(total))

	q, r := num.QuoRem(den, 0)
	if r.Add(r).GreaterThanOrEqual(den) {
		q = q.Add(decimal.NewFromInt(1))
	}

	return int(q.IntPart())
}

// Band assigns Classification to scores in [From, next band's From).
type Band struct {
	Classification domain.Classification
	From           int
}

// Classifier maps a score to a classification using ordered, non-overlapping bands
// covering [0, 100].
type Classifier struct {
	bands []Band
}

// DefaultBands are [0,50) beginner, [50,80) intermediate, [80,100] advanced.
func DefaultBands() []Band {
	return []Band{
		{Classification: domain.ClassificationBeginner, From: 0},
		{Classification: domain.ClassificationIntermediate, From: 50},
		{Classification: domain.ClassificationAdvanced, From: 80},
	}
}

// NewClassifier validates bands: the first must start at 0, starts must strictly increase and stay
// within 100, and each classification must be known and used once.
func NewClassifier(bands ...Band) (*Classifier, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("classifier: no bands")
	}
	if bands[0].From != 0 {
		return nil, fmt.Errorf("classifier: first band starts at %d, want 0", bands[0].From)
	}

	seen := make(map[domain.Classification]bool, len(bands))
	for i, b := range bands {
		if !b.Classification.Valid() {
			return nil, fmt.Errorf("classifier: unknown classification %q", b.Classification)
		}
		if seen[b.Classification] {
			return nil, fmt.Errorf("classifier: duplicate classification %q", b.Classification)
		}
		seen[b.Classification] = true

		if b.From > 100 {
			return nil, fmt.Errorf("classifier: band %q starts above 100", b.Classification)
		}
		if i > 0 && b.From <= bands[i-1].From {
			return nil, fmt.Errorf("classifier: band %q does not start after %q", b.Classification, bands[i-1].Classification)
		}
	}

	return &Classifier{bands: append([]Band(nil), bands...)}, nil
}

// Classify returns the band containing score. Scores are clamped into [0, 100].
func (c *Classifier) Classify(score int) domain.Classification {
	switch {
	case score < 0:
		score = 0
	case score > 100:
		score = 100
	}

	cls := c.bands[0].Classification
	for _, b := range c.bands {
		if score < b.From {
			break
		}
		cls = b.Classification
	}
	return cls
}

func (c *Classifier) Bands() []Band {
	return append([]Band(nil), c.bands...)
}
