package postgres

import (
	"context"
	"fmt"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSource reads the question bank from Postgres.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, body, correct_answers, published, created_at, updated_at
FROM questions
WHERE published
ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Body, &q.CorrectAnswers, &q.Published, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

// UpsertQuestions inserts or replaces questions in one batch.
func (s *QuestionSource) UpsertQuestions(ctx context.Context, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`
INSERT INTO questions (id, body, correct_answers, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO UPDATE
SET body = EXCLUDED.body,
    correct_answers = EXCLUDED.correct_answers,
    published = EXCLUDED.published,
    updated_at = EXCLUDED.updated_at`,
			q.ID, q.Body, q.CorrectAnswers, q.Published, now)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, q := range questions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return nil
}
