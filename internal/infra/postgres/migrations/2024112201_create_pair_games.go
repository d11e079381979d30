package migrations

import (
	"context"
	_ "embed"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 2024112201_create_pair_games.sql
var createPairGamesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execSplit(ctx, db, createPairGamesSQL)
		},
		func(ctx context.Context, db *bun.DB) error {
			return execSplit(ctx, db, `
DROP TABLE IF EXISTS answers;
--bun:split
DROP TABLE IF EXISTS player_progresses;
--bun:split
DROP TABLE IF EXISTS games;
--bun:split
DROP TABLE IF EXISTS questions;
--bun:split
DROP TABLE IF EXISTS users;
`)
		},
	)
}

// execSplit runs each "--bun:split" separated statement on its own.
func execSplit(ctx context.Context, db *bun.DB, script string) error {
	for _, stmt := range strings.Split(script, "--bun:split") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
