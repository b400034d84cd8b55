// internal/pkg/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mercury/internal/pkg/redis"
)

const (
	sessionKeyPrefix = "mercury:session:user:"
	sessionTTL       = 24 * time.Hour
)

// Manager 维护「用户 -> 所在推送网关实例」的映射，供跨实例消息路由使用。
type Manager struct {
	rdb *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// SetUserGateway 记录用户连接所在的网关地址。
func (m *Manager) SetUserGateway(ctx context.Context, userID, gatewayAddr string) error {
	key := sessionKeyPrefix + userID
	return m.rdb.GetClient().Set(ctx, key, gatewayAddr, sessionTTL).Err()
}

// GetUserGateway 查询用户当前连接的网关地址，未上线时返回空串。
func (m *Manager) GetUserGateway(ctx context.Context, userID string) (string, error) {
	key := sessionKeyPrefix + userID
	addr, err := m.rdb.GetClient().Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query user session: %w", err)
	}
	return addr, nil
}

// RemoveUserGateway 用户断连时清理映射。
func (m *Manager) RemoveUserGateway(ctx context.Context, userID string) error {
	key := sessionKeyPrefix + userID
	return m.rdb.GetClient().Del(ctx, key).Err()
}
