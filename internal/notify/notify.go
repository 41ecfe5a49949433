package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/event"
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Config struct {
	EventBus *event.Bus
	Redis    Redis
	Prefix   string
}

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Classification struct {
		ResultID       string                `json:"result_id"`
		Classification domain.Classification `json:"classification"`
		Score          int                   `json:"score"`
		CorrectAnswers int                   `json:"correct_answers"`
		TotalQuestions int                   `json:"total_questions"`
		SubmittedAt    string                `json:"submitted_at"`
	}

	CourseCompleted struct {
		CourseID string `json:"course_id"`
	}
)

// Notifier forwards domain events to per-user Redis channels so open clients can refresh their tier.
type Notifier struct {
	redis  Redis
	prefix string
}

func New(c Config) *Notifier {
	n := &Notifier{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	c.EventBus.Subscribe(domain.EventNameResultRecorded, func(ctx context.Context, e event.Event) error {
		return n.PublishResultRecorded(ctx, e.(domain.EventResultRecorded))
	})
	c.EventBus.Subscribe(domain.EventNameCourseCompleted, func(ctx context.Context, e event.Event) error {
		return n.PublishCourseCompleted(ctx, e.(domain.EventCourseCompleted))
	})

	return n
}

func (n *Notifier) PublishResultRecorded(ctx context.Context, e domain.EventResultRecorded) error {
	r := e.Result

	return n.publish(ctx, r.UserID, e.Name(), Classification{
		ResultID:       r.ResultID,
		Classification: r.Classification,
		Score:          r.Score,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		SubmittedAt:    r.SubmittedAt.Format(time.RFC3339),
	})
}

func (n *Notifier) PublishCourseCompleted(ctx context.Context, e domain.EventCourseCompleted) error {
	return n.publish(ctx, e.UserID, e.Name(), CourseCompleted{CourseID: e.CourseID})
}

func (n *Notifier) publish(ctx context.Context, user, name string, data any) error {
	b, err := json.Marshal(Notification{
		Event: name,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %v", name, err)
	}

	return n.redis.Publish(ctx, Channel(n.prefix, user), b).Err()
}

// Channel is the Redis channel carrying notifications for user.
func Channel(prefix, user string) string {
	return fmt.Sprintf("%s:user:%s", prefix, user)
}
