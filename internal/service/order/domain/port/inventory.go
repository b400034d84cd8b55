// internal/service/order/domain/port/inventory.go
package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductInfo 是商品服务返回的商品快照。
type ProductInfo struct {
	ProductID         string
	Name              string
	Price             decimal.Decimal
	AvailableQuantity int
	Active            bool
}

// ReserveCode 是单行库存预留的结果码。
type ReserveCode string

const (
	ReserveCodeReserved          ReserveCode = "RESERVED"
	ReserveCodeInsufficientStock ReserveCode = "INSUFFICIENT_STOCK"
	ReserveCodeNotFound          ReserveCode = "NOT_FOUND"
	ReserveCodeCancelled         ReserveCode = "CANCELLED"
)

// ReserveOutcome 是一次预留调用的业务结果。
// 拿到它意味着库存服务明确表了态，与传输层错误互斥。
type ReserveOutcome struct {
	ProductID      string
	Code           ReserveCode
	RemainingStock int
}

// InventoryService 是订单编排对库存服务的出站端口。
// Reserve 与 Release 都以幂等令牌标识一次预留，重试必须复用同一令牌。
type InventoryService interface {
	GetProduct(ctx context.Context, productID string) (*ProductInfo, error)
	Reserve(ctx context.Context, token, productID string, quantity int) (*ReserveOutcome, error)
	Release(ctx context.Context, token, productID string) error
}
