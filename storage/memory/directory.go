package memorystore

import (
	"context"
	"sync"

	"github.com/PaulFidika/auditstore/identity"
)

// Directory is an in-memory identity.Directory.
type Directory struct {
	mu    sync.RWMutex
	users map[string]identity.User
}

func NewDirectory(users ...identity.User) *Directory {
	d := &Directory{users: make(map[string]identity.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) Lookup(ctx context.Context, userID string) (identity.User, error) {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

// Add registers or replaces a user.
func (d *Directory) Add(u identity.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}
