// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/metrics"
	"mercury/internal/service/order/application/saga"
	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
)

// OrderApplicationService 编排下单 Saga 并提供订单查询。
type OrderApplicationService struct {
	repo      domain.OrderRepository
	inventory port.InventoryService
	rules     port.RuleEngine
	events    port.OrderEventProducer
	cache     port.OrderCache
	tracer    trace.Tracer
}

func NewOrderApplicationService(
	repo domain.OrderRepository,
	inventory port.InventoryService,
	rules port.RuleEngine,
	events port.OrderEventProducer,
	cache port.OrderCache,
) *OrderApplicationService {
	return &OrderApplicationService{
		repo:      repo,
		inventory: inventory,
		rules:     rules,
		events:    events,
		cache:     cache,
		tracer:    otel.Tracer("order-service"),
	}
}

// PlaceOrder 执行完整的下单编排。
// 任一步骤失败都会触发整单补偿，已预留的库存全部释放。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "PlaceOrder")
	defer span.End()
	defer func() {
		metrics.OrderProcessingSeconds.Observe(time.Since(start).Seconds())
	}()

	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.customer_ref", req.CustomerRef),
		attribute.Int("order.line_count", len(req.Lines)),
	)

	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	order, err := domain.NewOrder(orderID, req.CustomerRef, lines)
	if err != nil {
		span.SetStatus(codes.Error, "invalid order request")
		metrics.OrdersPlacedTotal.WithLabelValues(string(domain.StateFailed)).Inc()
		return &PlaceOrderResult{
			OrderID:     orderID,
			Status:      domain.StateFailed,
			FailureKind: FailureValidation,
			Reason:      err.Error(),
		}, nil
	}

	orderCtx := &saga.OrderContext{
		Ctx:       ctx,
		Order:     order,
		Tracer:    s.tracer,
		Inventory: s.inventory,
		Rules:     s.rules,
		Repo:      s.repo,
		Events:    s.events,
	}

	if err := buildChain().Handle(orderCtx); err != nil {
		return s.handleFailure(ctx, orderCtx, err), nil
	}

	// 缓存只是读路径的加速，写失败不影响下单结果
	if cerr := s.cache.Set(ctx, order); cerr != nil {
		logger.Ctx(ctx).Warn().Err(cerr).Str("order_id", order.ID).Msg("failed to cache order status")
	}

	metrics.OrdersPlacedTotal.WithLabelValues(string(domain.StateConfirmed)).Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("total", order.TotalAmount.String()).
		Msg("order confirmed")

	result := &PlaceOrderResult{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}
	for _, line := range order.Lines {
		result.Lines = append(result.Lines, PlacedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return result, nil
}

// buildChain 组装下单 Saga 的步骤链。
func buildChain() saga.Handler {
	validate := &saga.ValidateHandler{}
	rules := &saga.RuleCheckHandler{}
	reserve := &saga.ReserveHandler{}
	persist := &saga.PersistHandler{}
	notify := &saga.NotifyHandler{}

	validate.SetNext(rules).SetNext(reserve).SetNext(persist).SetNext(notify)
	return validate
}

// handleFailure 统一处理 Saga 中断：补偿、审计落库、事件发布。
func (s *OrderApplicationService) handleFailure(ctx context.Context, orderCtx *saga.OrderContext, sagaErr error) *PlaceOrderResult {
	span := trace.SpanFromContext(ctx)
	span.RecordError(sagaErr)
	span.SetStatus(codes.Error, "order placement failed")

	order := orderCtx.Order
	kind := classifyFailure(sagaErr)
	order.MarkFailed(sagaErr.Error())

	// 补偿挂在与请求解耦的上下文上，只继承链路信息。
	// 客户端断开或请求超时都不能中断库存释放。
	compCtx := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
	orderCtx.TriggerCompensation(compCtx)

	// 预留阶段一旦开始，失败订单也要留下审计记录；
	// 在那之前的失败（校验、规则拒绝）没有动过库存，不落库也不发事件
	if kind != FailureValidation && order.ReservationAttempted() {
		if err := s.repo.Create(compCtx, order); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to persist failed order audit record")
		}
		if err := s.events.PublishOrderEvent(compCtx, domain.EventOrderFailed, order); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order failed event")
		}
	}

	metrics.OrdersPlacedTotal.WithLabelValues(string(domain.StateFailed)).Inc()
	logger.Ctx(ctx).Warn().
		Str("order_id", order.ID).
		Str("kind", string(kind)).
		Err(sagaErr).
		Msg("order placement failed")

	result := &PlaceOrderResult{
		OrderID:     order.ID,
		Status:      domain.StateFailed,
		FailureKind: kind,
		Reason:      sagaErr.Error(),
	}
	for _, failure := range orderCtx.LineFailures() {
		result.FailedLines = append(result.FailedLines, FailedLine{
			ProductID: failure.ProductID,
			Reason:    failure.Reason,
		})
	}
	return result
}

// classifyFailure 把 Saga 错误映射为对客户端有意义的失败类别。
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, domain.ErrInvalidQuantity):
		return FailureValidation
	case errors.Is(err, domain.ErrUnknownProduct),
		errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, domain.ErrStockRejected),
		errors.Is(err, domain.ErrRuleRejected):
		return FailureRejected
	case errors.Is(err, domain.ErrServiceDegraded):
		return FailureUnavailable
	default:
		return FailureInternal
	}
}

// GetOrder 查询单个订单，优先走缓存。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if cached, err := s.cache.Get(ctx, orderID); err == nil && cached != nil {
		span.AddEvent("cache hit")
		return toOrderView(cached), nil
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.Set(ctx, order); cerr != nil {
		logger.Ctx(ctx).Warn().Err(cerr).Str("order_id", orderID).Msg("failed to backfill order cache")
	}
	return toOrderView(order), nil
}

// ListOrders 按客户引用分页列出订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, customerRef string, limit, offset int) ([]*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "ListOrders")
	defer span.End()
	span.SetAttributes(attribute.String("order.customer_ref", customerRef))

	orders, err := s.repo.ListByCustomerRef(ctx, customerRef, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]*OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	return views, nil
}
