// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine 是订单中的一行。
// UnitPrice 在下单时从商品服务抓取并固化，后续改价不影响已收单的订单。
// ReservationToken 是该行库存预留的幂等令牌，重试与补偿都凭它进行。
type OrderLine struct {
	ProductID        string
	Quantity         int
	UnitPrice        decimal.Decimal
	ReservationToken string
}

// Subtotal 返回该行的小计金额。
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order 是订单聚合的根实体。
type Order struct {
	ID            string
	CustomerRef   string
	Lines         []OrderLine
	Status        State
	TotalAmount   decimal.Decimal
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder 创建一个待预留状态的订单草稿，并做结构性校验。
func NewOrder(id, customerRef string, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	now := time.Now()
	return &Order{
		ID:          id,
		CustomerRef: customerRef,
		Lines:       lines,
		Status:      StatePendingReservation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ComputeTotal 以固化的单价重新计算订单总额。
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// MarkConfirmed 在所有行预留成功且订单落库前调用。
func (o *Order) MarkConfirmed() {
	o.Status = StateConfirmed
	o.TotalAmount = o.ComputeTotal()
	o.UpdatedAt = time.Now()
}

// MarkFailed 记录失败原因，留作审计。
func (o *Order) MarkFailed(reason string) {
	o.Status = StateFailed
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
}

// ReservationAttempted 报告预留阶段是否已经开始。
// 任何一行分配过预留令牌即为真，此后的失败都可能动过库存。
func (o *Order) ReservationAttempted() bool {
	for _, line := range o.Lines {
		if line.ReservationToken != "" {
			return true
		}
	}
	return false
}
