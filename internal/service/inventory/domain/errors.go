// internal/service/inventory/domain/errors.go
package domain

import "errors"

var (
	ErrInvalidProduct    = errors.New("invalid product definition")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not active")
	ErrProductExists     = errors.New("product already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)
