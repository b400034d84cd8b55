// internal/service/order/application/saga/reserve.go
package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"mercury/internal/pkg/logger"
	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
)

// ReserveHandler 为订单的每一行并发预留库存。
// 每行持有独立的幂等令牌；补偿在发起调用前注册，
// 即使请求结果未知（超时）也能保证释放会被尝试。
type ReserveHandler struct {
	NextHandler
}

func (h *ReserveHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ReserveStock")
	defer span.End()
	span.SetAttributes(attribute.Int("order.line_count", len(orderCtx.Order.Lines)))

	// 不用带取消的 group：一行失败时其余在途的预留仍要跑完，
	// 它们的结果由各自已注册的补偿来收拾。
	var g errgroup.Group

	// errgroup 的 Wait 只返回第一个错误，失败明细要逐行收齐
	var errsLock sync.Mutex
	var lineErrs []error
	fail := func(productID string, cause error) error {
		orderCtx.RecordLineFailure(productID, cause.Error())
		wrapped := fmt.Errorf("product %s: %w", productID, cause)
		errsLock.Lock()
		lineErrs = append(lineErrs, wrapped)
		errsLock.Unlock()
		return wrapped
	}

	for i := range orderCtx.Order.Lines {
		line := &orderCtx.Order.Lines[i]
		line.ReservationToken = uuid.NewString()

		token := line.ReservationToken
		productID := line.ProductID
		quantity := line.Quantity

		// 先登记补偿再发请求。释放对未知令牌是安全的空操作，
		// 所以从未到达服务端的预留也可以放心补偿。
		orderCtx.AddCompensation(func(compCtx context.Context) {
			compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.ReleaseStock")
			defer compSpan.End()
			compSpan.SetAttributes(
				attribute.String("product.id", productID),
				attribute.String("reservation.token", token),
			)
			if err := orderCtx.Inventory.Release(compCtx, token, productID); err != nil {
				// 补偿失败必须可见，依赖告警与人工介入
				compSpan.RecordError(err)
				compSpan.SetStatus(codes.Error, "stock release failed")
				logger.Ctx(compCtx).Error().Err(err).
					Str("order_id", orderCtx.Order.ID).
					Str("product_id", productID).
					Str("token", token).
					Msg("compensation failed to release stock")
			}
		})

		g.Go(func() error {
			outcome, err := orderCtx.Inventory.Reserve(ctx, token, productID, quantity)
			if err != nil {
				return fail(productID, err)
			}
			switch outcome.Code {
			case port.ReserveCodeReserved:
				return nil
			case port.ReserveCodeNotFound:
				return fail(productID, domain.ErrUnknownProduct)
			default:
				// INSUFFICIENT_STOCK / CANCELLED
				return fail(productID, domain.ErrStockRejected)
			}
		})
	}

	if err := g.Wait(); err != nil {
		combined := errors.Join(lineErrs...)
		span.RecordError(combined)
		span.SetStatus(codes.Error, "stock reservation failed")
		return combined
	}

	span.AddEvent("all lines reserved")
	return h.executeNext(orderCtx)
}
