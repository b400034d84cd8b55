// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 是订单聚合的持久化端口。
type OrderRepository interface {
	// Create 持久化一个订单聚合。同一订单号重复写入视为成功，不产生第二份记录。
	Create(ctx context.Context, order *Order) error

	// FindByID 查询单个订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, orderID string) (*Order, error)

	// ListByCustomerRef 按客户引用倒序列出订单。limit <= 0 时使用默认页大小。
	ListByCustomerRef(ctx context.Context, customerRef string, limit, offset int) ([]*Order, error)
}
