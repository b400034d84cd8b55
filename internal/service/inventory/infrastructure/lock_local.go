// internal/service/inventory/infrastructure/lock_local.go
package infrastructure

import (
	"context"
	"sync"

	"mercury/internal/service/inventory/domain/port"
)

// LocalLockManager 在单进程部署下用内存互斥锁串行化同一资源的操作。
type LocalLockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{locks: make(map[string]*sync.Mutex)}
}

func (m *LocalLockManager) Acquire(_ context.Context, resourceID string) (port.Unlocker, error) {
	m.mu.Lock()
	lock, ok := m.locks[resourceID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[resourceID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return mutexUnlocker{lock}, nil
}

type mutexUnlocker struct {
	mu *sync.Mutex
}

func (u mutexUnlocker) Unlock() error {
	u.mu.Unlock()
	return nil
}
