// internal/service/order/application/saga/rulecheck.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"mercury/internal/pkg/logger"
	"mercury/internal/service/order/domain"
)

// RuleCheckHandler 在动用库存之前先做订单准入裁决。
type RuleCheckHandler struct {
	NextHandler
}

func (h *RuleCheckHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.RuleCheck")
	defer span.End()

	accepted, reason, err := orderCtx.Rules.Evaluate(ctx, orderCtx.Order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rule evaluation failed")
		return err
	}
	if !accepted {
		span.SetStatus(codes.Error, "order rejected by rules")
		logger.Ctx(ctx).Warn().
			Str("order_id", orderCtx.Order.ID).
			Str("reason", reason).
			Msg("order rejected by acceptance rules")
		return fmt.Errorf("%w: %s", domain.ErrRuleRejected, reason)
	}

	return h.executeNext(orderCtx)
}
