package memory

import (
	"context"
	"errors"
	"sync"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/domain"
)

// errPendingExists mirrors the single pending game constraint of the SQL schema.
var errPendingExists = errors.New("a pending game already exists")

// GameStore is an in-memory implementation of app.GameRepository.
// Transactions are serialized by a store-wide lock; their writes are buffered
// and applied only when the callback succeeds.
type GameStore struct {
	txMu sync.Mutex

	mu    sync.RWMutex
	games map[string]domain.Game
	order []string
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]domain.Game),
	}
}

func (s *GameStore) InTx(ctx context.Context, fn func(ctx context.Context, tx app.GameTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &gameTx{store: s, writes: make(map[string]domain.Game)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, game := range tx.writes {
		s.games[id] = game
	}
	s.order = append(s.order, tx.created...)
	return nil
}

func (s *GameStore) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *GameStore) UnfinishedGameByUser(_ context.Context, userID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		game := s.games[id]
		if game.Status != domain.StatusFinished && game.HasPlayer(userID) {
			return game.Clone(), nil
		}
	}
	return domain.Game{}, domain.ErrGameNotFound
}

func (s *GameStore) ListGamesByUser(_ context.Context, userID string) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Game, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		game := s.games[s.order[i]]
		if game.HasPlayer(userID) {
			out = append(out, game.Clone())
		}
	}
	return out, nil
}

type gameTx struct {
	store   *GameStore
	writes  map[string]domain.Game
	created []string
}

// snapshot returns committed games overlaid with this transaction's writes, oldest first.
func (tx *gameTx) snapshot() []domain.Game {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	out := make([]domain.Game, 0, len(tx.store.order)+len(tx.created))
	for _, id := range tx.store.order {
		if game, ok := tx.writes[id]; ok {
			out = append(out, game)
			continue
		}
		out = append(out, tx.store.games[id])
	}
	for _, id := range tx.created {
		out = append(out, tx.writes[id])
	}
	return out
}

func (tx *gameTx) find(match func(g *domain.Game) bool) (domain.Game, error) {
	for _, game := range tx.snapshot() {
		if match(&game) {
			return game.Clone(), nil
		}
	}
	return domain.Game{}, domain.ErrGameNotFound
}

func (tx *gameTx) PendingGame(_ context.Context) (domain.Game, error) {
	return tx.find(func(g *domain.Game) bool { return g.Status == domain.StatusPending })
}

func (tx *gameTx) UnfinishedGameByUser(_ context.Context, userID string) (domain.Game, error) {
	return tx.find(func(g *domain.Game) bool {
		return g.Status != domain.StatusFinished && g.HasPlayer(userID)
	})
}

func (tx *gameTx) GameForUpdate(_ context.Context, gameID string) (domain.Game, error) {
	return tx.find(func(g *domain.Game) bool { return g.ID == gameID })
}

func (tx *gameTx) CreateGame(_ context.Context, game domain.Game) error {
	if _, err := tx.GameForUpdate(context.Background(), game.ID); err == nil {
		return errors.New("game " + game.ID + " already exists")
	}
	if game.Status == domain.StatusPending {
		if _, err := tx.PendingGame(context.Background()); err == nil {
			return errPendingExists
		}
	}
	tx.writes[game.ID] = game.Clone()
	tx.created = append(tx.created, game.ID)
	return nil
}

func (tx *gameTx) UpdateGame(_ context.Context, game domain.Game) error {
	if _, err := tx.GameForUpdate(context.Background(), game.ID); err != nil {
		return err
	}
	tx.writes[game.ID] = game.Clone()
	return nil
}
