// internal/service/inventory/domain/product.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 是库存台账中的商品条目。
// AvailableQuantity 是唯一的库存事实，所有预留与释放都落在它上面。
type Product struct {
	ProductID         string
	Name              string
	Price             decimal.Decimal
	AvailableQuantity int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewProduct 创建一个新商品条目，默认上架。
func NewProduct(productID, name string, price decimal.Decimal, quantity int) (*Product, error) {
	if productID == "" || name == "" {
		return nil, ErrInvalidProduct
	}
	if price.IsNegative() || quantity < 0 {
		return nil, ErrInvalidProduct
	}
	now := time.Now()
	return &Product{
		ProductID:         productID,
		Name:              name,
		Price:             price,
		AvailableQuantity: quantity,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// HasSufficientStock 判断当前可用量能否覆盖请求量。
func (p *Product) HasSufficientStock(quantity int) bool {
	return p.AvailableQuantity >= quantity
}
