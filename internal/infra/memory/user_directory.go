package memory

import (
	"context"
	"sync"

	"pair-quiz-service/internal/domain"
)

// UserDirectory is a map-backed app.UserDirectory.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.Player
}

func NewUserDirectory(players ...domain.Player) *UserDirectory {
	d := &UserDirectory{users: make(map[string]domain.Player, len(players))}
	for _, p := range players {
		d.users[p.ID] = p
	}
	return d
}

func (d *UserDirectory) GetUser(_ context.Context, userID string) (domain.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.users[userID]
	if !ok {
		return domain.Player{}, domain.ErrUserNotFound
	}
	return p, nil
}

// Put adds or replaces a user.
func (d *UserDirectory) Put(p domain.Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[p.ID] = p
}
