package cli

import (
	"errors"
	"fmt"
	"time"

	"pair-quiz-service/internal/auth"
	"pair-quiz-service/internal/config"
	"pair-quiz-service/internal/domain"

	"github.com/spf13/cobra"
)

// NewTokenCmd prints a signed access token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		login  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwtSecret not configured")
			}
			if userID == "" {
				return errors.New("--user is required")
			}
			tokens := auth.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			raw, err := tokens.Issue(domain.Player{ID: userID, Login: login})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&login, "login", "", "user login")
	return cmd
}
