package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pair-quiz-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionSource(sampleQuestions(6))}
	bank := NewQuestionBank(source, time.Minute)

	if _, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}

	set, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame)
	if err != nil {
		t.Fatalf("draw 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
	if len(set) != domain.QuestionsPerGame {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerGame, len(set))
	}
}

func TestQuestionBankReloadsAfterTTL(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionSource(sampleQuestions(5))}
	bank := NewQuestionBank(source, time.Minute)
	now := time.Now()
	bank.clock = func() time.Time { return now }

	if _, err := bank.DrawRandomSet(context.Background(), 5); err != nil {
		t.Fatalf("draw: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := bank.DrawRandomSet(context.Background(), 5); err != nil {
		t.Fatalf("draw after ttl: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after ttl, source calls %d", source.calls)
	}
}

func TestQuestionBankInsufficient(t *testing.T) {
	qs := sampleQuestions(5)
	qs[4].Published = false
	bank := NewQuestionBank(NewStaticQuestionSource(qs), time.Minute)

	if _, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
}

type countingSource struct {
	QuestionSource
	calls int
}

func (s *countingSource) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	s.calls++
	return s.QuestionSource.PublishedQuestions(ctx)
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, domain.Question{
			ID:             fmt.Sprintf("q%d", i),
			Body:           fmt.Sprintf("What is %d + %d?", i, i),
			CorrectAnswers: []string{fmt.Sprint(2 * i)},
			Published:      true,
		})
	}
	return qs
}
