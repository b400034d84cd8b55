// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderConfirmed = "order.confirmed"
	EventOrderFailed    = "order.failed"
)

// OrderEvent 是发往消息总线的订单生命周期事件信封。
// CorrelationID 即订单号，下游按它聚合同一订单的全部事件。
type OrderEvent struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Producer      string            `json:"producer"`
	TraceID       string            `json:"trace_id,omitempty"`
	CorrelationID string            `json:"correlation_id"`
	Payload       OrderEventPayload `json:"payload"`
}

// OrderEventPayload 携带订单的终态快照。
type OrderEventPayload struct {
	OrderID     string           `json:"order_id"`
	CustomerRef string           `json:"customer_ref"`
	Status      State            `json:"status"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Reason      string           `json:"reason,omitempty"`
	Lines       []OrderEventLine `json:"lines"`
}

type OrderEventLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
