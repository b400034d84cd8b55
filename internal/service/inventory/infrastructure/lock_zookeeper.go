// internal/service/inventory/infrastructure/lock_zookeeper.go
package infrastructure

import (
	"context"

	"mercury/internal/service/inventory/domain/port"
	"mercury/internal/zookeeper"
)

// ZkLockManager 在多实例部署下用 ZooKeeper 分布式锁串行化同一商品的库存操作。
type ZkLockManager struct {
	conn *zookeeper.Conn
}

func NewZkLockManager(conn *zookeeper.Conn) *ZkLockManager {
	return &ZkLockManager{conn: conn}
}

func (m *ZkLockManager) Acquire(ctx context.Context, resourceID string) (port.Unlocker, error) {
	lock, err := zookeeper.NewDistributedLock(m.conn, resourceID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return lock, nil
}
