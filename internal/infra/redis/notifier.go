package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pair-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Notifier fans game snapshots out over Redis pub/sub so every instance sees
// updates committed by any other instance.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, game domain.Game) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	return n.client.Publish(ctx, channel(game.ID), raw).Err()
}

func (n *Notifier) Subscribe(ctx context.Context, gameID string) (<-chan domain.Game, func(), error) {
	sub := n.client.Subscribe(ctx, channel(gameID))
	// wait for the subscription confirmation so no publish after this call is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.Game, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var game domain.Game
				if err := json.Unmarshal([]byte(msg.Payload), &game); err != nil {
					continue
				}
				select {
				case out <- game:
				default:
					select {
					case <-out:
					default:
					}
					out <- game
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

func channel(gameID string) string {
	return "quiz:game:" + gameID
}
