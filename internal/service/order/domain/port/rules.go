// internal/service/order/domain/port/rules.go
package port

import (
	"context"

	"mercury/internal/service/order/domain"
)

// RuleEngine 在预留库存之前对订单做准入裁决。
type RuleEngine interface {
	// Evaluate 返回 false 表示订单被规则拒绝，reason 给出拒绝说明。
	Evaluate(ctx context.Context, order *domain.Order) (accepted bool, reason string, err error)
}
