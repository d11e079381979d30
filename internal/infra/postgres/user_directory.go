package postgres

import (
	"context"
	"errors"
	"fmt"

	"pair-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (domain.Player, error) {
	var p domain.Player
	err := d.pool.QueryRow(ctx, `SELECT id, login FROM users WHERE id=$1`, userID).Scan(&p.ID, &p.Login)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("load user: %w", err)
	}
	return p, nil
}

func (d *UserDirectory) UpsertUsers(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(`INSERT INTO users (id, login) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET login = EXCLUDED.login`, p.ID, p.Login)
	}
	br := d.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, p := range players {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert user %s: %w", p.ID, err)
		}
	}
	return nil
}
