package progress

import (
	"github.com/victornm/phishlms/internal/domain"
)

// Summarize folds a profile's completed courses against the catalog. It is pure and is meant to be
// recomputed on every read. Completed ids no longer in the catalog are not counted.
func Summarize(p domain.Profile, catalog []domain.Course) domain.ProgressSummary {
	done := make(map[string]struct{}, len(p.CompletedCourses))
	for _, id := range p.CompletedCourses {
		done[id] = struct{}{}
	}

	s := domain.ProgressSummary{TotalCourses: len(catalog)}
	for _, c := range catalog {
		if _, ok := done[c.ID]; ok {
			s.CompletedCourses++
			delete(done, c.ID)
		}
	}

	if s.TotalCourses == 0 {
		return s
	}

	s.ProgressPercentage = float64(s.CompletedCourses) / float64(s.TotalCourses) * 100
	return s
}
