package memory

import (
	"context"
	"sync"
)

// IdentityProvider resolves usernames from a local map, falling back to the
// user id itself. Stands in for the platform identity service.
type IdentityProvider struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewIdentityProvider() *IdentityProvider {
	return &IdentityProvider{names: make(map[string]string)}
}

// SetUsername registers a display name for a user.
func (p *IdentityProvider) SetUsername(userID, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[userID] = username
}

func (p *IdentityProvider) Username(_ context.Context, userID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name, ok := p.names[userID]; ok {
		return name, nil
	}
	return userID, nil
}
