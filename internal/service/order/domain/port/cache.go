// internal/service/order/domain/port/cache.go
package port

import (
	"context"

	"mercury/internal/service/order/domain"
)

// OrderCache 缓存订单终态，读路径优先走缓存。
// 缓存不可用时实现应返回错误而非阻塞，读路径自行回源。
type OrderCache interface {
	Set(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}
