// internal/service/order/application/saga/validate.go
package saga

import (
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mercury/internal/service/order/domain"
)

// ValidateHandler 校验每一行引用的商品，并把当时的单价固化到订单行上。
// 各行的商品查询并发执行。
type ValidateHandler struct {
	NextHandler
}

func (h *ValidateHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ValidateProducts")
	defer span.End()
	span.SetAttributes(attribute.Int("order.line_count", len(orderCtx.Order.Lines)))

	var wg sync.WaitGroup
	errs := make(chan error, len(orderCtx.Order.Lines))

	for i := range orderCtx.Order.Lines {
		wg.Add(1)
		go func(line *domain.OrderLine) {
			defer wg.Done()
			product, err := orderCtx.Inventory.GetProduct(ctx, line.ProductID)
			if err != nil {
				orderCtx.RecordLineFailure(line.ProductID, err.Error())
				errs <- fmt.Errorf("product %s: %w", line.ProductID, err)
				return
			}
			if !product.Active {
				orderCtx.RecordLineFailure(line.ProductID, domain.ErrProductInactive.Error())
				errs <- fmt.Errorf("product %s: %w", line.ProductID, domain.ErrProductInactive)
				return
			}
			// 固化下单时刻的价格
			line.UnitPrice = product.Price
		}(&orderCtx.Order.Lines[i])
	}

	wg.Wait()
	close(errs)

	var combinedErr error
	for err := range errs {
		combinedErr = errors.Join(combinedErr, err)
	}
	if combinedErr != nil {
		span.RecordError(combinedErr)
		span.SetStatus(codes.Error, "product validation failed")
		return combinedErr
	}

	span.AddEvent("all product lines validated, prices captured")
	return h.executeNext(orderCtx)
}
