package app

import (
	"context"

	"pair-quiz-service/internal/domain"
)

// GameRepository abstracts how games are stored (in-memory, Postgres).
type GameRepository interface {
	// InTx runs fn atomically. Implementations serialize concurrent transactions
	// that touch the same games and may run fn more than once on conflict, so fn
	// must not keep state across attempts.
	InTx(ctx context.Context, fn func(ctx context.Context, tx GameTx) error) error
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	UnfinishedGameByUser(ctx context.Context, userID string) (domain.Game, error)
	ListGamesByUser(ctx context.Context, userID string) ([]domain.Game, error)
}

// GameTx is the view of the store inside a transaction. Reads lock the rows they return.
type GameTx interface {
	PendingGame(ctx context.Context) (domain.Game, error)
	UnfinishedGameByUser(ctx context.Context, userID string) (domain.Game, error)
	GameForUpdate(ctx context.Context, gameID string) (domain.Game, error)
	CreateGame(ctx context.Context, game domain.Game) error
	UpdateGame(ctx context.Context, game domain.Game) error
}

// QuestionBank supplies random question sets to new games.
type QuestionBank interface {
	DrawRandomSet(ctx context.Context, n int) ([]domain.Question, error)
}

// UserDirectory resolves authenticated user IDs to players.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (domain.Player, error)
}

// Notifier fans game snapshots out to live subscribers.
type Notifier interface {
	Publish(ctx context.Context, game domain.Game) error
	// Subscribe returns a channel of game updates. The caller must invoke the
	// returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, gameID string) (<-chan domain.Game, func(), error)
}

// EventPublisher forwards lifecycle events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.GameEvent) error
}

// Metrics records service level counters.
type Metrics interface {
	ObserveEvent(t domain.EventType)
	ObserveAnswer(status domain.AnswerStatus)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, domain.Game) error { return nil }

func (nopNotifier) Subscribe(context.Context, string) (<-chan domain.Game, func(), error) {
	ch := make(chan domain.Game)
	return ch, func() {}, nil
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, domain.GameEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveEvent(domain.EventType)     {}
func (nopMetrics) ObserveAnswer(domain.AnswerStatus) {}
