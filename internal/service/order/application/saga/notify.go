// internal/service/order/application/saga/notify.go
package saga

import (
	"go.opentelemetry.io/otel/attribute"

	"mercury/internal/pkg/logger"
	"mercury/internal/service/order/domain"
)

// NotifyHandler 是链的末端，发布订单确认事件。
// 发布失败不回滚订单：事件属于通知面，靠监控与补发兜底。
type NotifyHandler struct {
	NextHandler
}

func (h *NotifyHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PublishConfirmed")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", "order-events"),
	)

	if err := orderCtx.Events.PublishOrderEvent(ctx, domain.EventOrderConfirmed, orderCtx.Order); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", orderCtx.Order.ID).
			Msg("failed to publish order confirmed event")
	}

	return h.executeNext(orderCtx)
}
