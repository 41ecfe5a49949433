package progress_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/progress"
)

func TestSummarize(t *testing.T) {
	tests := map[string]struct {
		completed []string
		catalog   int
		want      domain.ProgressSummary
	}{
		"empty catalog should yield zero percent": {
			completed: []string{"c1"},
			catalog:   0,
			want:      domain.ProgressSummary{CompletedCourses: 0, TotalCourses: 0, ProgressPercentage: 0},
		},
		"nothing completed should yield zero percent": {
			catalog: 3,
			want:    domain.ProgressSummary{CompletedCourses: 0, TotalCourses: 3, ProgressPercentage: 0},
		},
		"half completed should yield fifty percent": {
			completed: []string{"c1", "c2"},
			catalog:   4,
			want:      domain.ProgressSummary{CompletedCourses: 2, TotalCourses: 4, ProgressPercentage: 50},
		},
		"duplicate ids should count once": {
			completed: []string{"c1", "c1"},
			catalog:   2,
			want:      domain.ProgressSummary{CompletedCourses: 1, TotalCourses: 2, ProgressPercentage: 50},
		},
		"ids missing from the catalog should not count": {
			completed: []string{"c1", "c2", "c3"},
			catalog:   2,
			want:      domain.ProgressSummary{CompletedCourses: 1, TotalCourses: 2, ProgressPercentage: 50},
		},
		"all catalog courses completed plus stale ids should yield one hundred": {
			completed: []string{"c0", "removed", "c1"},
			catalog:   2,
			want:      domain.ProgressSummary{CompletedCourses: 2, TotalCourses: 2, ProgressPercentage: 100},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := domain.Profile{UserID: "u1", CompletedCourses: tt.completed}
			got := progress.Summarize(p, makeCatalog(tt.catalog))

			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestSummarize_DoesNotMutate(t *testing.T) {
	p := domain.Profile{CompletedCourses: []string{"c2", "c1"}}
	catalog := makeCatalog(2)

	_ = progress.Summarize(p, catalog)

	assert.Equal(t, []string{"c2", "c1"}, p.CompletedCourses)
	assert.Len(t, catalog, 2)
}

func TestService_GetProgress(t *testing.T) {
	s := progress.NewService(progress.Config{
		Profiles: fakeProfiles{"u1": {UserID: "u1", CompletedCourses: []string{"c0"}}},
		Catalog:  fakeCatalog{courses: makeCatalog(4)},
	})

	got, err := s.GetProgress(context.Background(), progress.GetProgressRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, &domain.ProgressSummary{CompletedCourses: 1, TotalCourses: 4, ProgressPercentage: 25}, got)

	_, err = s.GetProgress(context.Background(), progress.GetProgressRequest{UserID: "nobody"})
	require.ErrorIs(t, err, errors.New(errors.CodeNotFound))

	_, err = s.GetProgress(context.Background(), progress.GetProgressRequest{})
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestService_GetProgress_CatalogFailure(t *testing.T) {
	s := progress.NewService(progress.Config{
		Profiles: fakeProfiles{"u1": {UserID: "u1"}},
		Catalog:  fakeCatalog{err: stderrors.New("mongo down")},
	})

	_, err := s.GetProgress(context.Background(), progress.GetProgressRequest{UserID: "u1"})
	require.Error(t, err)
}

func makeCatalog(n int) []domain.Course {
	cs := make([]domain.Course, n)
	for i := range cs {
		cs[i] = domain.Course{ID: "c" + string(rune('0'+i)), Difficulty: domain.ClassificationBeginner}
	}
	return cs
}

type fakeProfiles map[string]*domain.Profile

func (f fakeProfiles) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := f[userID]
	if !ok {
		return nil, errors.NotFound("profile not found: user=%s", userID)
	}
	return p, nil
}

type fakeCatalog struct {
	courses []domain.Course
	err     error
}

func (f fakeCatalog) ListAllCourses(context.Context) ([]domain.Course, error) {
	return f.courses, f.err
}
