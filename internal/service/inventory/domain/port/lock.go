// internal/service/inventory/domain/port/lock.go
package port

import "context"

// Unlocker 释放一把已持有的锁。
type Unlocker interface {
	Unlock() error
}

// LockManager 对同一资源的操作做串行化。
// 实现可以是进程内互斥锁，也可以是 ZooKeeper 分布式锁。
type LockManager interface {
	Acquire(ctx context.Context, resourceID string) (Unlocker, error)
}
