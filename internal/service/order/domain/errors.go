// internal/service/order/domain/errors.go
package domain

import "errors"

var (
	ErrEmptyOrder      = errors.New("order must contain at least one line")
	ErrInvalidQuantity = errors.New("line quantity must be positive")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrProductInactive = errors.New("product is not available for sale")
	ErrStockRejected   = errors.New("stock reservation rejected")
	ErrRuleRejected    = errors.New("order rejected by acceptance rules")
	ErrServiceDegraded = errors.New("downstream service unavailable")
	ErrOrderNotFound   = errors.New("order not found")
)
