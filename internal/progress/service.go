package progress

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

type Catalog interface {
	ListAllCourses(ctx context.Context) ([]domain.Course, error)
}

type Config struct {
	Profiles Profiles
	Catalog  Catalog
}

type Service struct {
	profiles Profiles
	catalog  Catalog
}

func NewService(c Config) *Service {
	return &Service{
		profiles: c.Profiles,
		catalog:  c.Catalog,
	}
}

type GetProgressRequest struct {
	UserID string
}

// GetProgress summarizes the user's training progress from fresh reads of profile and catalog.
func (s *Service) GetProgress(ctx context.Context, req GetProgressRequest) (*domain.ProgressSummary, error) {
	if req.UserID == "" {
		return nil, errors.Unauthorized("no authenticated user")
	}

	var (
		p       *domain.Profile
		courses []domain.Course
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		p, err = s.profiles.GetProfile(ctx, req.UserID)
		return err
	})
	eg.Go(func() (err error) {
		courses, err = s.catalog.ListAllCourses(ctx)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}

	sum := Summarize(*p, courses)
	return &sum, nil
}
