// internal/service/order/application/saga/persist.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// PersistHandler 在所有行预留成功后确认并持久化订单。
// 这里失败会触发整单补偿，防止库存被一个不存在的订单占住。
type PersistHandler struct {
	NextHandler
}

func (h *PersistHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	orderCtx.Order.MarkConfirmed()
	if err := orderCtx.Repo.Create(ctx, orderCtx.Order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order persistence failed")
		return fmt.Errorf("failed to persist confirmed order: %w", err)
	}
	span.AddEvent("confirmed order saved")

	return h.executeNext(orderCtx)
}
