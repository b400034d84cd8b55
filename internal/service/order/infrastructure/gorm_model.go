// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 是 orders 表的 GORM 模型。
type OrderModel struct {
	OrderID       string          `gorm:"primaryKey;size:64"`
	CustomerRef   string          `gorm:"size:64;index"`
	Status        string          `gorm:"size:32;not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	FailureReason string          `gorm:"size:512"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 是 order_items 表的 GORM 模型。
type OrderItemModel struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"`
	OrderID          string          `gorm:"size:64;index;not null"`
	ProductID        string          `gorm:"size:64;not null"`
	Quantity         int             `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReservationToken string          `gorm:"size:64"`
	CreatedAt        time.Time
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
