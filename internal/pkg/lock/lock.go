package lock

import (
	"context"
	"sync"
	"time"

	domainErrors "paygate/internal/domain/errors"
)

// Manager provides mutual exclusion keyed by arbitrary strings. Acquire
// returns a release function, or ErrOperationInProgress when the key is
// already held.
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// LocalManager is an in-process Manager for single-node deployments and
// tests.
type LocalManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalManager creates an empty in-process lock manager.
func NewLocalManager() *LocalManager {
	return &LocalManager{held: make(map[string]struct{})}
}

// Acquire takes the key or fails immediately if it is held. The ttl is
// ignored; in-process locks live until released.
func (m *LocalManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil, domainErrors.ErrOperationInProgress
	}
	m.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}
	return release, nil
}
