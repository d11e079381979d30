package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/domain"
)

func TestGameStoreCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	game := domain.NewGame("g1", domain.Player{ID: "u1", Login: "alice"}, sampleQuestions(5), time.Now())

	boom := errors.New("boom")
	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		if err := tx.CreateGame(ctx, game); err != nil {
			return err
		}
		if _, err := tx.PendingGame(ctx); err != nil {
			t.Fatalf("created game not visible inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := store.GetGame(ctx, "g1"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected rolled back game to be absent, got %v", err)
	}

	err = store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, game)
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.UnfinishedGameByUser(ctx, "u1")
	if err != nil || got.ID != "g1" {
		t.Fatalf("expected g1 for u1, got %+v err=%v", got, err)
	}
}

func TestGameStoreSinglePending(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	now := time.Now()

	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		if err := tx.CreateGame(ctx, domain.NewGame("g1", domain.Player{ID: "u1"}, sampleQuestions(5), now)); err != nil {
			return err
		}
		return tx.CreateGame(ctx, domain.NewGame("g2", domain.Player{ID: "u2"}, sampleQuestions(5), now))
	})
	if !errors.Is(err, errPendingExists) {
		t.Fatalf("expected pending constraint violation, got %v", err)
	}
}

func TestGameStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	game := domain.NewGame("g1", domain.Player{ID: "u1"}, sampleQuestions(5), time.Now())
	_ = store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error { return tx.CreateGame(ctx, game) })

	got, _ := store.GetGame(ctx, "g1")
	got.FirstPlayer.Score = 42
	again, _ := store.GetGame(ctx, "g1")
	if again.FirstPlayer.Score != 0 {
		t.Fatalf("store state mutated through returned game")
	}
}

func TestGameStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	now := time.Now()

	for i, id := range []string{"g1", "g2"} {
		g := domain.NewGame(id, domain.Player{ID: "u1"}, sampleQuestions(5), now.Add(time.Duration(i)*time.Minute))
		g.Status = domain.StatusFinished
		if err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error { return tx.CreateGame(ctx, g) }); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	games, err := store.ListGamesByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 2 || games[0].ID != "g2" || games[1].ID != "g1" {
		t.Fatalf("unexpected order %+v", games)
	}
	if other, _ := store.ListGamesByUser(ctx, "u9"); len(other) != 0 {
		t.Fatalf("expected no games for stranger, got %d", len(other))
	}
}

func TestUserDirectory(t *testing.T) {
	dir := NewUserDirectory(domain.Player{ID: "u1", Login: "alice"})
	if p, err := dir.GetUser(context.Background(), "u1"); err != nil || p.Login != "alice" {
		t.Fatalf("unexpected user %+v err=%v", p, err)
	}
	if _, err := dir.GetUser(context.Background(), "u2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
