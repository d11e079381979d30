package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated player. The subject is the user ID.
type Claims struct {
	Login string `json:"login"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) Issue(p domain.Player) (string, error) {
	now := s.now()
	claims := Claims{
		Login: p.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(raw string) (domain.Player, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Player{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Player{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return domain.Player{ID: claims.Subject, Login: claims.Login}, nil
}

type ctxKey struct{}

func WithPlayer(ctx context.Context, p domain.Player) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PlayerFrom returns the authenticated player stored by WithPlayer.
func PlayerFrom(ctx context.Context) (domain.Player, bool) {
	p, ok := ctx.Value(ctxKey{}).(domain.Player)
	return p, ok
}
