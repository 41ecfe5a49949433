package question

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/phishlms/internal/domain"
)

type postgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource stores the question set in the exam_questions table, ordered by position.
func NewPostgresSource(db *pgxpool.Pool) Source {
	return &postgresSource{db: db}
}

func (p *postgresSource) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	const stmt = `
SELECT question_id, prompt, options, correct_option, explanation
FROM exam_questions
ORDER BY position;`

	rows, err := p.db.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		err := r.Scan(&q.ID, &q.Prompt, &q.Options, &q.CorrectOptionIndex, &q.Explanation)
		return q, err
	})
}

func (p *postgresSource) ReplaceQuestions(ctx context.Context, qs []domain.Question) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		delStmt = `DELETE FROM exam_questions;`
		insStmt = `
INSERT INTO exam_questions (question_id, position, prompt, options, correct_option, explanation)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	if _, err = tx.Exec(ctx, delStmt); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	b := &pgx.Batch{}
	for i, q := range qs {
		b.Queue(insStmt, q.ID, i, q.Prompt, q.Options, q.CorrectOptionIndex, q.Explanation)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
