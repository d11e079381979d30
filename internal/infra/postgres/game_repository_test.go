package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var errConflict = errors.New("conflict")

func isConflict(err error) bool { return errors.Is(err, errConflict) }

func TestNewGameRepositoryDefaultsRetries(t *testing.T) {
	for _, n := range []int{0, -3} {
		if got := NewGameRepository(nil, n).maxRetries; got != defaultMaxTxRetries {
			t.Fatalf("maxRetries(%d) = %d, want %d", n, got, defaultMaxTxRetries)
		}
	}
	if got := NewGameRepository(nil, 7).maxRetries; got != 7 {
		t.Fatalf("explicit retries overridden: %d", got)
	}
}

func TestRetryTxRetriesConflictsWithDefaultBudget(t *testing.T) {
	repo := NewGameRepository(nil, 0)
	calls := 0
	err := retryTx(context.Background(), repo.maxRetries, isConflict, func() error {
		calls++
		if calls < 4 {
			return fmt.Errorf("commit: %w", errConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryTx: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}
}

func TestRetryTxStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retryTx(context.Background(), 10, isConflict, func() error {
		calls++
		return fmt.Errorf("answer: %w", domain.ErrAlreadyAnswered)
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected unwrapped domain error, got %v", err)
	}
}

func TestRetryTxReturnsLastErrorWhenBudgetSpent(t *testing.T) {
	calls := 0
	err := retryTx(context.Background(), 2, isConflict, func() error {
		calls++
		return errConflict
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !errors.Is(err, errConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRetryTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retryTx(ctx, 10, isConflict, func() error {
		calls++
		return errConflict
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if calls > 1 {
		t.Fatalf("expected no retries after cancel, got %d attempts", calls)
	}
}

func offlineDB(t *testing.T) *bun.DB {
	t.Helper()
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector()), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSavePlayersQueries(t *testing.T) {
	db := offlineDB(t)
	players := []playerModel{{GameID: "g1", UserID: "u1", Login: "alice", Slot: 1, Score: 2}}
	answers := []answerModel{{GameID: "g1", UserID: "u1", Position: 0, QuestionID: "q1", Status: "Correct"}}

	upsert := upsertPlayersQuery(db, &players).String()
	for _, want := range []string{`INSERT INTO "player_progresses"`, "ON CONFLICT (game_id, user_id) DO UPDATE", "SET score = EXCLUDED.score"} {
		if !strings.Contains(upsert, want) {
			t.Fatalf("upsert query %q lacks %q", upsert, want)
		}
	}
	if strings.Contains(upsert, "login = EXCLUDED") || strings.Contains(upsert, "slot = EXCLUDED") {
		t.Fatalf("upsert must keep login and slot: %q", upsert)
	}

	insert := insertAnswersQuery(db, &answers).String()
	for _, want := range []string{`INSERT INTO "answers"`, "ON CONFLICT (game_id, user_id, position) DO NOTHING"} {
		if !strings.Contains(insert, want) {
			t.Fatalf("answers query %q lacks %q", insert, want)
		}
	}
}

func TestAssembleGamesPlacesPlayersBySlot(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	models := []gameModel{
		{ID: "g2", Status: string(domain.StatusActive), PairCreatedDate: now},
		{ID: "g1", Status: string(domain.StatusPending), PairCreatedDate: now},
	}
	players := []playerModel{
		{GameID: "g1", UserID: "u1", Login: "alice", Slot: 1},
		{GameID: "g2", UserID: "u2", Login: "bob", Slot: 1, Score: 1},
		{GameID: "g2", UserID: "u1", Login: "alice", Slot: 2},
	}
	answers := []answerModel{
		{GameID: "g2", UserID: "u2", Position: 0, QuestionID: "q1", Status: string(domain.AnswerCorrect), AddedAt: now},
		{GameID: "g2", UserID: "u2", Position: 1, QuestionID: "q2", Status: string(domain.AnswerIncorrect), AddedAt: now},
	}

	games := assembleGames(models, players, answers)
	if len(games) != 2 || games[0].ID != "g2" || games[1].ID != "g1" {
		t.Fatalf("games out of model order: %+v", games)
	}

	active := games[0]
	if active.FirstPlayer.Player.ID != "u2" || active.FirstPlayer.Score != 1 {
		t.Fatalf("unexpected first player %+v", active.FirstPlayer)
	}
	if active.SecondPlayer == nil || active.SecondPlayer.Player.ID != "u1" {
		t.Fatalf("unexpected second player %+v", active.SecondPlayer)
	}
	if got := active.FirstPlayer.Answers; len(got) != 2 || got[0].QuestionID != "q1" || got[1].QuestionID != "q2" {
		t.Fatalf("unexpected answers %+v", got)
	}
	if active.SecondPlayer.Answers == nil || len(active.SecondPlayer.Answers) != 0 {
		t.Fatalf("expected empty non-nil answers, got %#v", active.SecondPlayer.Answers)
	}

	pending := games[1]
	if pending.FirstPlayer.Player.Login != "alice" || pending.SecondPlayer != nil {
		t.Fatalf("pending game should have only a first player: %+v", pending)
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(errors.New("boom")) {
		t.Fatalf("plain errors must not be retried")
	}
	if isRetryable(fmt.Errorf("wrapped: %w", domain.ErrInvalidState)) {
		t.Fatalf("domain errors must not be retried")
	}
}

func TestPlayerModelsKeepSlotsAndPositions(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	g := domain.Game{
		ID:     "g1",
		Status: domain.StatusActive,
		FirstPlayer: domain.PlayerProgress{
			Player: domain.Player{ID: "u1", Login: "alice"},
			Score:  1,
			Answers: []domain.Answer{
				{QuestionID: "q1", Status: domain.AnswerCorrect, AddedAt: now},
				{QuestionID: "q2", Status: domain.AnswerIncorrect, AddedAt: now},
			},
		},
		SecondPlayer: &domain.PlayerProgress{
			Player:  domain.Player{ID: "u2", Login: "bob"},
			Answers: []domain.Answer{},
		},
	}

	players, answers := toPlayerModels(g)
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].Slot != 1 || players[0].UserID != "u1" || players[1].Slot != 2 || players[1].UserID != "u2" {
		t.Fatalf("unexpected slots %+v", players)
	}
	if len(answers) != 2 || answers[0].Position != 0 || answers[1].Position != 1 || answers[1].QuestionID != "q2" {
		t.Fatalf("unexpected answers %+v", answers)
	}
}
