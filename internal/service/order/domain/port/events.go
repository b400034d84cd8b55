// internal/service/order/domain/port/events.go
package port

import (
	"context"

	"mercury/internal/service/order/domain"
)

// OrderEventProducer 把订单生命周期事件发布到消息总线。
// 发布失败不阻断主流程，由调用方记录并告警。
type OrderEventProducer interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *domain.Order) error
}
