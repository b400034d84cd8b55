// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/mercury/locks"

// DistributedLock 基于 ZooKeeper 临时顺序节点实现的互斥锁。
// 同一资源（如某个商品）的并发扣减通过它串行化。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的父节点，例如 /mercury/locks/stock/P-1001
	lockNode string // 成功排队后自己创建的节点路径
}

// NewDistributedLock 为指定资源创建锁实例并确保锁路径存在。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + resourceID
	if err := ensurePath(conn, lockPath); err != nil {
		return nil, err
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// ensurePath 逐级创建持久节点，节点已存在不算错误。
func ensurePath(conn *Conn, path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	current := ""
	for _, part := range parts {
		current += "/" + part
		_, err := conn.Create(current, []byte{}, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("failed to create lock path %s: %w", current, err)
		}
	}
	return nil
}

// Lock 排队等待直到获得锁或 ctx 结束。
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 创建临时顺序节点加入队列
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.release()
			return fmt.Errorf("failed to list lock queue: %w", err)
		}
		sort.Strings(children)

		// 2. 自己排在最前则获得锁
		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if len(children) > 0 && myNodeName == children[0] {
			return nil
		}

		// 3. 否则只监听紧邻的前一个节点，避免惊群
		prevIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevIndex = i - 1
				break
			}
		}
		if prevIndex < 0 {
			l.release()
			return errors.New("lock node missing from queue")
		}
		prevNodePath := l.path + "/" + children[prevIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			l.release()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			// 前一个持有者刚好退出，立即重新竞争
			continue
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			l.release()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) release() {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
}
