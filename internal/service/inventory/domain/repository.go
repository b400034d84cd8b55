// internal/service/inventory/domain/repository.go
package domain

import "context"

// ProductRepository 是库存台账的持久化端口。
// Reserve 与 Release 必须原子地完成库存变更与流水记录。
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) error
	FindProduct(ctx context.Context, productID string) (*Product, error)

	// Reserve 以幂等令牌扣减库存。重复令牌返回首次记录的结果。
	Reserve(ctx context.Context, token, productID string, quantity int) (*ReserveResult, error)

	// Release 归还一个令牌对应的预留。未知令牌写入 CANCELLED 墓碑并返回 NOOP。
	Release(ctx context.Context, token, productID string) (ReleaseOutcome, error)
}
