// internal/service/order/application/dto.go
package application

import (
	"github.com/shopspring/decimal"

	"mercury/internal/service/order/domain"
)

// PlaceOrderRequest 是下单用例的输入。
// OrderID 可由客户端携带以实现重试幂等，留空时由服务端生成。
type PlaceOrderRequest struct {
	OrderID     string
	CustomerRef string
	Lines       []OrderLineRequest
}

type OrderLineRequest struct {
	ProductID string
	Quantity  int
}

// FailureKind 把失败归类到客户端可以据以行动的维度。
type FailureKind string

const (
	// FailureValidation 请求本身不合法
	FailureValidation FailureKind = "VALIDATION"
	// FailureRejected 业务拒绝：商品不存在、下架、库存不足或触犯准入规则
	FailureRejected FailureKind = "REJECTED"
	// FailureUnavailable 下游服务不可用，稍后重试可能成功
	FailureUnavailable FailureKind = "UNAVAILABLE"
	// FailureInternal 订单侧内部错误
	FailureInternal FailureKind = "INTERNAL"
)

// PlaceOrderResult 是下单用例的输出，成功与失败共用同一结构。
// 失败时 FailedLines 逐行给出未通过的商品及原因。
type PlaceOrderResult struct {
	OrderID     string
	Status      domain.State
	TotalAmount decimal.Decimal
	Lines       []PlacedLine
	FailureKind FailureKind
	Reason      string
	FailedLines []FailedLine
}

// FailedLine 是失败响应中单独一行的明细。
type FailedLine struct {
	ProductID string
	Reason    string
}

type PlacedLine struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderView 是查询接口返回的订单视图。
type OrderView struct {
	OrderID     string
	CustomerRef string
	Status      domain.State
	TotalAmount decimal.Decimal
	Reason      string
	Lines       []PlacedLine
}

func toOrderView(order *domain.Order) *OrderView {
	view := &OrderView{
		OrderID:     order.ID,
		CustomerRef: order.CustomerRef,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Reason:      order.FailureReason,
	}
	for _, line := range order.Lines {
		view.Lines = append(view.Lines, PlacedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return view
}
