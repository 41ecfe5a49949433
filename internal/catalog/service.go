package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

const (
	collCourses = "courses"
	collContent = "training_content"
)

type Config struct {
	DB *mongo.Database
}

// Service reads the course catalog. It never writes.
type Service struct {
	courses *mongo.Collection
	content *mongo.Collection
}

func NewService(c Config) *Service {
	return &Service{
		courses: c.DB.Collection(collCourses),
		content: c.DB.Collection(collContent),
	}
}

// ListCourses returns the courses of one training tier, sorted by title.
func (s *Service) ListCourses(ctx context.Context, tier domain.Classification) ([]domain.Course, error) {
	if !tier.Valid() {
		return nil, errors.InvalidArgument("unknown training tier %q", tier)
	}

	return s.findCourses(ctx, bson.M{"difficulty": string(tier)})
}

// ListAllCourses returns every course in the catalog.
func (s *Service) ListAllCourses(ctx context.Context) ([]domain.Course, error) {
	return s.findCourses(ctx, bson.M{})
}

func (s *Service) findCourses(ctx context.Context, filter bson.M) ([]domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})

	cur, err := s.courses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: find courses: %w", err)
	}

	courses := []domain.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("catalog: decode courses: %w", err)
	}

	return courses, nil
}

// GetCourse returns a single course.
func (s *Service) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	var c domain.Course
	err := s.courses.FindOne(ctx, bson.M{"_id": courseID}).Decode(&c)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NotFound("course not found: course=%s", courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get course: %w", err)
	}

	return &c, nil
}

// ListContent returns the training content of a course in presentation order.
func (s *Service) ListContent(ctx context.Context, courseID string) ([]domain.TrainingContent, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cur, err := s.content.Find(ctx, bson.M{"course_id": courseID}, opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: find content: %w", err)
	}

	content := []domain.TrainingContent{}
	if err := cur.All(ctx, &content); err != nil {
		return nil, fmt.Errorf("catalog: decode content: %w", err)
	}

	return content, nil
}
