package cli

import (
	"errors"

	"pair-quiz-service/internal/config"
	"pair-quiz-service/internal/infra/postgres"
	redisinfra "pair-quiz-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads questions and users from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions and users from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if file == "" {
				file = cfg.Quiz.SeedFile
			}
			if file == "" {
				return errors.New("no seed file given")
			}
			seed, err := config.LoadSeed(file)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewQuestionSource(pool).UpsertQuestions(ctx, seed.Questions); err != nil {
				return err
			}
			if err := postgres.NewUserDirectory(pool).UpsertUsers(ctx, seed.Users); err != nil {
				return err
			}

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				if err := redisinfra.NewQuestionBank(client, nil, 0).Invalidate(ctx); err != nil {
					log.WithError(err).Warn("question cache not invalidated")
				}
			}

			log.WithFields(logrus.Fields{
				"questions": len(seed.Questions),
				"users":     len(seed.Users),
			}).Info("seed applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed YAML file (defaults to quiz.seedFile)")
	return cmd
}
