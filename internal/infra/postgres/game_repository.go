package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type gameModel struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID              string                `bun:"id,pk"`
	Status          string                `bun:"status,notnull"`
	PairCreatedDate time.Time             `bun:"pair_created_date,notnull"`
	StartGameDate   *time.Time            `bun:"start_game_date"`
	FinishGameDate  *time.Time            `bun:"finish_game_date"`
	Questions       []domain.GameQuestion `bun:"questions,type:jsonb,notnull"`
}

type playerModel struct {
	bun.BaseModel `bun:"table:player_progresses,alias:pp"`

	GameID string `bun:"game_id,pk"`
	UserID string `bun:"user_id,pk"`
	Login  string `bun:"login,notnull"`
	Slot   int    `bun:"slot,notnull"`
	Score  int    `bun:"score,notnull"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	GameID     string    `bun:"game_id,pk"`
	UserID     string    `bun:"user_id,pk"`
	Position   int       `bun:"position,pk"`
	QuestionID string    `bun:"question_id,notnull"`
	Status     string    `bun:"status,notnull"`
	AddedAt    time.Time `bun:"added_at,notnull"`
}

// GameRepository stores games in Postgres. Transactions run with serializable
// isolation and are retried on serialization failures, deadlocks and unique
// violations (including the single pending game index).
type GameRepository struct {
	db         *bun.DB
	maxRetries uint64
}

// defaultMaxTxRetries applies when the configured retry count is not positive.
// Concurrent connects contend on the pending game row, so a handful of retries is not enough.
const defaultMaxTxRetries = 50

func NewGameRepository(db *bun.DB, maxRetries int) *GameRepository {
	if maxRetries <= 0 {
		maxRetries = defaultMaxTxRetries
	}
	return &GameRepository{db: db, maxRetries: uint64(maxRetries)}
}

func (r *GameRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx app.GameTx) error) error {
	return retryTx(ctx, r.maxRetries, isRetryable, func() error {
		return r.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, &gameTx{db: tx})
		})
	})
}

// retryTx runs op until it succeeds, fails with an error retryable rejects, or
// maxRetries retries are spent. The error returned is op's own, not a backoff wrapper.
func retryTx(ctx context.Context, maxRetries uint64, retryable func(error) bool, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	return selectOne(ctx, r.db, false, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("g.id = ?", gameID)
	})
}

func (r *GameRepository) UnfinishedGameByUser(ctx context.Context, userID string) (domain.Game, error) {
	return selectOne(ctx, r.db, false, unfinishedByUser(userID))
}

func (r *GameRepository) ListGamesByUser(ctx context.Context, userID string) ([]domain.Game, error) {
	var models []gameModel
	err := r.db.NewSelect().
		Model(&models).
		Where("EXISTS (SELECT 1 FROM player_progresses AS pp WHERE pp.game_id = g.id AND pp.user_id = ?)", userID).
		OrderExpr("g.pair_created_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return hydrate(ctx, r.db, models)
}

type gameTx struct {
	db bun.IDB
}

func (tx *gameTx) PendingGame(ctx context.Context) (domain.Game, error) {
	return selectOne(ctx, tx.db, true, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("g.status = ?", string(domain.StatusPending))
	})
}

func (tx *gameTx) UnfinishedGameByUser(ctx context.Context, userID string) (domain.Game, error) {
	return selectOne(ctx, tx.db, true, unfinishedByUser(userID))
}

func (tx *gameTx) GameForUpdate(ctx context.Context, gameID string) (domain.Game, error) {
	return selectOne(ctx, tx.db, true, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("g.id = ?", gameID)
	})
}

func (tx *gameTx) CreateGame(ctx context.Context, game domain.Game) error {
	m := toGameModel(game)
	if _, err := tx.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return tx.savePlayers(ctx, game)
}

func (tx *gameTx) UpdateGame(ctx context.Context, game domain.Game) error {
	m := toGameModel(game)
	res, err := tx.db.NewUpdate().
		Model(&m).
		Column("status", "start_game_date", "finish_game_date").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrGameNotFound
	}
	return tx.savePlayers(ctx, game)
}

// savePlayers upserts both progress rows and appends answers that are not stored yet.
func (tx *gameTx) savePlayers(ctx context.Context, game domain.Game) error {
	players, answers := toPlayerModels(game)
	if _, err := upsertPlayersQuery(tx.db, &players).Exec(ctx); err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}
	if len(answers) == 0 {
		return nil
	}
	if _, err := insertAnswersQuery(tx.db, &answers).Exec(ctx); err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}
	return nil
}

// upsertPlayersQuery only refreshes the score of an existing row; login and slot are fixed at join.
func upsertPlayersQuery(db bun.IDB, players *[]playerModel) *bun.InsertQuery {
	return db.NewInsert().
		Model(players).
		On("CONFLICT (game_id, user_id) DO UPDATE").
		Set("score = EXCLUDED.score")
}

// insertAnswersQuery appends answers; rows already stored are left untouched.
func insertAnswersQuery(db bun.IDB, answers *[]answerModel) *bun.InsertQuery {
	return db.NewInsert().
		Model(answers).
		On("CONFLICT (game_id, user_id, position) DO NOTHING")
}

func unfinishedByUser(userID string) func(q *bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("g.status <> ?", string(domain.StatusFinished)).
			Where("EXISTS (SELECT 1 FROM player_progresses AS pp WHERE pp.game_id = g.id AND pp.user_id = ?)", userID).
			OrderExpr("g.pair_created_date DESC")
	}
}

func selectOne(ctx context.Context, db bun.IDB, lock bool, filter func(q *bun.SelectQuery) *bun.SelectQuery) (domain.Game, error) {
	var m gameModel
	q := filter(db.NewSelect().Model(&m)).Limit(1)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Game{}, domain.ErrGameNotFound
		}
		return domain.Game{}, fmt.Errorf("select game: %w", err)
	}
	games, err := hydrate(ctx, db, []gameModel{m})
	if err != nil {
		return domain.Game{}, err
	}
	return games[0], nil
}

// hydrate loads players and answers for models and assembles domain games in model order.
func hydrate(ctx context.Context, db bun.IDB, models []gameModel) ([]domain.Game, error) {
	if len(models) == 0 {
		return []domain.Game{}, nil
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}

	var players []playerModel
	err := db.NewSelect().
		Model(&players).
		Where("pp.game_id IN (?)", bun.In(ids)).
		Order("pp.game_id", "pp.slot").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	var answers []answerModel
	err = db.NewSelect().
		Model(&answers).
		Where("a.game_id IN (?)", bun.In(ids)).
		Order("a.game_id", "a.user_id", "a.position").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	return assembleGames(models, players, answers), nil
}

// assembleGames joins loaded rows into domain games in model order. Slot 1 is the first player.
// players and answers are expected sorted by slot and position.
func assembleGames(models []gameModel, players []playerModel, answers []answerModel) []domain.Game {
	out := make([]domain.Game, 0, len(models))

	type key struct{ game, user string }
	byPlayer := make(map[key][]domain.Answer)
	for _, a := range answers {
		k := key{a.GameID, a.UserID}
		byPlayer[k] = append(byPlayer[k], domain.Answer{
			QuestionID: a.QuestionID,
			Status:     domain.AnswerStatus(a.Status),
			AddedAt:    a.AddedAt,
		})
	}
	byGame := make(map[string][]playerModel)
	for _, p := range players {
		byGame[p.GameID] = append(byGame[p.GameID], p)
	}

	for _, m := range models {
		game := domain.Game{
			ID:              m.ID,
			Status:          domain.GameStatus(m.Status),
			PairCreatedDate: m.PairCreatedDate,
			StartGameDate:   m.StartGameDate,
			FinishGameDate:  m.FinishGameDate,
			Questions:       m.Questions,
		}
		for _, p := range byGame[m.ID] {
			progress := domain.PlayerProgress{
				Player:  domain.Player{ID: p.UserID, Login: p.Login},
				Score:   p.Score,
				Answers: byPlayer[key{m.ID, p.UserID}],
			}
			if progress.Answers == nil {
				progress.Answers = []domain.Answer{}
			}
			if p.Slot == 1 {
				game.FirstPlayer = progress
			} else {
				second := progress
				game.SecondPlayer = &second
			}
		}
		out = append(out, game)
	}
	return out
}

func toGameModel(g domain.Game) gameModel {
	return gameModel{
		ID:              g.ID,
		Status:          string(g.Status),
		PairCreatedDate: g.PairCreatedDate,
		StartGameDate:   g.StartGameDate,
		FinishGameDate:  g.FinishGameDate,
		Questions:       g.Questions,
	}
}

func toPlayerModels(g domain.Game) ([]playerModel, []answerModel) {
	var (
		players []playerModel
		answers []answerModel
	)
	for i, p := range g.Participants() {
		players = append(players, playerModel{
			GameID: g.ID,
			UserID: p.Player.ID,
			Login:  p.Player.Login,
			Slot:   i + 1,
			Score:  p.Score,
		})
		for pos, a := range p.Answers {
			answers = append(answers, answerModel{
				GameID:     g.ID,
				UserID:     p.Player.ID,
				Position:   pos,
				QuestionID: a.QuestionID,
				Status:     string(a.Status),
				AddedAt:    a.AddedAt,
			})
		}
	}
	return players, answers
}

// isRetryable reports whether err is a transient conflict worth retrying the transaction for.
func isRetryable(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Field('C') {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}
