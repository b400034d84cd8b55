// internal/service/inventory/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel 是 products 表的 GORM 模型。
type ProductModel struct {
	ProductID         string          `gorm:"primaryKey;size:64"`
	Name              string          `gorm:"size:255;not null"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AvailableQuantity int             `gorm:"not null"`
	Active            bool            `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// ReservationModel 是预留流水表的 GORM 模型，幂等令牌为主键。
type ReservationModel struct {
	Token     string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"size:64;index;not null"`
	Quantity  int    `gorm:"not null"`
	Status    string `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReservationModel) TableName() string {
	return "stock_reservations"
}
