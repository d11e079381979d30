package memory

import (
	"context"
	"sync"

	"pair-quiz-service/internal/domain"
)

// Notifier is an in-process implementation of app.Notifier keyed by game ID.
type Notifier struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.Game]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan domain.Game]struct{}),
	}
}

func (n *Notifier) Publish(_ context.Context, game domain.Game) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.topics[game.ID] {
		snapshot := game.Clone()
		select {
		case ch <- snapshot:
		default:
			// slow subscriber: drop its oldest snapshot so the latest one always lands
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return nil
}

func (n *Notifier) Subscribe(_ context.Context, gameID string) (<-chan domain.Game, func(), error) {
	ch := make(chan domain.Game, 8)

	n.mu.Lock()
	subs, ok := n.topics[gameID]
	if !ok {
		subs = make(map[chan domain.Game]struct{})
		n.topics[gameID] = subs
	}
	subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs, ok := n.topics[gameID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(n.topics, gameID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many live subscriptions gameID has.
func (n *Notifier) Subscribers(gameID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.topics[gameID])
}
