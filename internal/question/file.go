package question

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/victornm/phishlms/internal/domain"
)

// LoadFile reads a JSON array of questions, in exam order.
func LoadFile(path string) ([]domain.Question, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("question: read %s: %w", path, err)
	}

	var qs []domain.Question
	if err := json.Unmarshal(b, &qs); err != nil {
		return nil, fmt.Errorf("question: decode %s: %w", path, err)
	}

	return qs, nil
}
