// internal/service/order/application/saga/handler.go
package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/metrics"
	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
)

// OrderContext 在下单 Saga 的各步骤之间传递上下文数据。
// 所有外部依赖都以出站端口的形式注入。
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Tracer trace.Tracer

	Inventory port.InventoryService
	Rules     port.RuleEngine
	Repo      domain.OrderRepository
	Events    port.OrderEventProducer

	// compensations 是后进先出的补偿栈
	compensations []func(ctx context.Context)
	compLock      sync.Mutex

	// lineFailures 逐行记录失败明细，失败响应按它回报每一行
	lineFailures []LineFailure
	failLock     sync.Mutex
}

// LineFailure 描述某一行校验或预留失败的原因。
type LineFailure struct {
	ProductID string
	Reason    string
}

// RecordLineFailure 记录一行的失败明细，并发步骤可安全调用。
func (c *OrderContext) RecordLineFailure(productID, reason string) {
	c.failLock.Lock()
	defer c.failLock.Unlock()
	c.lineFailures = append(c.lineFailures, LineFailure{ProductID: productID, Reason: reason})
}

// LineFailures 返回已记录的逐行失败明细。
func (c *OrderContext) LineFailures() []LineFailure {
	c.failLock.Lock()
	defer c.failLock.Unlock()
	out := make([]LineFailure, len(c.lineFailures))
	copy(out, c.lineFailures)
	return out
}

// AddCompensation 注册一个补偿动作，最近注册的最先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 执行全部已注册的补偿动作。
// 传入的 ctx 与请求上下文解耦，客户端断开不会中断补偿。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Str("order_id", c.Order.ID).
		Int("count", len(c.compensations)).
		Msg("executing compensation functions")
	for _, comp := range c.compensations {
		metrics.CompensationsTotal.Inc()
		comp(ctx)
	}
	c.compensations = nil
}

// Handler 是 Saga 步骤的责任链接口。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
