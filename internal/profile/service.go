package profile

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/event"
)

const codeUniqueViolation = "23505"

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Service is the profile store. classification and exam_score are only written by ApplyExamResult.
type Service struct {
	db *pgxpool.Pool
	eb *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
		eb: c.EventBus,
	}
}

// GetProfile returns the profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	const stmt = `
SELECT user_id, name, email, classification, exam_score, completed_courses, current_course
FROM users
WHERE user_id = $1;`

	var (
		p       domain.Profile
		current *string
	)
	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&p.UserID, &p.Name, &p.Email, &p.Classification, &p.ExamScore, &p.CompletedCourses, &current,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("profile not found: user=%s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get: %w", err)
	}

	if current != nil {
		p.CurrentCourse = *current
	}
	if p.CompletedCourses == nil {
		p.CompletedCourses = []string{}
	}

	return &p, nil
}

// ApplyExamResult appends res to the user's history and sets classification and exam score together,
// in one transaction, so readers never see a new score with an old classification. An attempt is
// recorded once; applying it again is an AlreadyExists error and leaves the profile untouched.
func (s *Service) ApplyExamResult(ctx context.Context, res domain.ExamResult) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insResultStmt = `
INSERT INTO exam_results (result_id, user_id, attempt_id, score, total_questions, correct_answers, classification, time_taken_seconds, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

		updUserStmt = `
UPDATE users SET classification = $2, exam_score = $3, updated_at = $4
WHERE user_id = $1;`
	)

	tag, err := tx.Exec(ctx, updUserStmt, res.UserID, string(res.Classification), res.Score, res.SubmittedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("profile not found: user=%s", res.UserID)
	}

	_, err = tx.Exec(ctx, insResultStmt,
		res.ResultID, res.UserID, res.AttemptID, res.Score, res.TotalQuestions, res.CorrectAnswers,
		string(res.Classification), res.TimeTakenSeconds, res.SubmittedAt,
	)
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("result already recorded: user=%s attempt=%s", res.UserID, res.AttemptID),
			errors.WithCause(err),
		)
	}
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return tx.Commit(ctx)
}

const selectResultStmt = `
SELECT result_id::text, user_id, attempt_id, score, total_questions, correct_answers, classification, time_taken_seconds, submitted_at
FROM exam_results`

func scanResult(r pgx.Row) (domain.ExamResult, error) {
	var res domain.ExamResult
	err := r.Scan(&res.ResultID, &res.UserID, &res.AttemptID, &res.Score, &res.TotalQuestions, &res.CorrectAnswers,
		&res.Classification, &res.TimeTakenSeconds, &res.SubmittedAt)
	return res, err
}

// GetExamResult returns the result recorded for the user's attempt.
func (s *Service) GetExamResult(ctx context.Context, userID, attemptID string) (*domain.ExamResult, error) {
	const stmt = selectResultStmt + `
WHERE user_id = $1 AND attempt_id = $2;`

	res, err := scanResult(s.db.QueryRow(ctx, stmt, userID, attemptID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("result not found: user=%s attempt=%s", userID, attemptID)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get result: %w", err)
	}

	return &res, nil
}

// ListExamResults returns the user's results, newest first.
func (s *Service) ListExamResults(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	const stmt = selectResultStmt + `
WHERE user_id = $1
ORDER BY submitted_at DESC;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: list results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ExamResult, error) {
		return scanResult(r)
	})
	if err != nil {
		return nil, fmt.Errorf("profile: list results: %w", err)
	}

	return results, nil
}

// CompleteCourse adds courseID to the user's completed set. Completing a course twice is a no-op.
func (s *Service) CompleteCourse(ctx context.Context, userID, courseID string) error {
	const stmt = `
UPDATE users SET
	completed_courses = CASE WHEN $2::text = ANY(completed_courses) THEN completed_courses ELSE array_append(completed_courses, $2::text) END,
	current_course = CASE WHEN current_course = $2::text THEN NULL ELSE current_course END,
	updated_at = now()
WHERE user_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, userID, courseID)
	if err != nil {
		return fmt.Errorf("profile: complete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("profile not found: user=%s", userID)
	}

	s.eb.Publish(ctx, domain.EventCourseCompleted{
		UserID:   userID,
		CourseID: courseID,
	})

	return nil
}
